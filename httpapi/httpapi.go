// Package httpapi mounts the public routes every storefront service
// exposes: a static greeting at the root, the generated API description
// and an interactive documentation UI.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/swaggo/swag"
)

const (
	// DocPath serves the API description.
	DocPath = "/swagger/openapi.json"
	// UIPrefix is where the documentation UI is mounted.
	UIPrefix = "/swagger-ui"

	greeting = "<h1>Hello world!</h1>"
)

// Routes returns a route installer for service. The API description is
// registered once per service name.
func Routes(service, version string) func(*gin.Engine) {
	RegisterDoc(service, version)
	return func(engine *gin.Engine) {
		engine.GET("/", Index)
		engine.GET(DocPath, OpenAPI(service))
		engine.GET(UIPrefix+"/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL(DocPath),
			httpSwagger.InstanceName(service),
		)))
	}
}

// Index serves the static greeting.
func Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(greeting))
}

// OpenAPI serves the API description registered for service.
func OpenAPI(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc(service)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}
