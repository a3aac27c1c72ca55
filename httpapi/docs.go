package httpapi

import (
	"sync"

	"github.com/swaggo/swag"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": [
                    "text/html"
                ],
                "summary": "Greeting page",
                "responses": {
                    "200": {
                        "description": "Static greeting",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/swagger/openapi.json": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "summary": "API description",
                "responses": {
                    "200": {
                        "description": "JSON file"
                    }
                }
            }
        },
        "/health": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "summary": "Component health",
                "responses": {
                    "200": {
                        "description": "All components healthy or degraded"
                    },
                    "503": {
                        "description": "At least one component unhealthy"
                    }
                }
            }
        },
        "/info": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "summary": "Service identity and uptime",
                "responses": {
                    "200": {
                        "description": "Service info"
                    }
                }
            }
        }
    }
}`

var registerMu sync.Mutex

// RegisterDoc registers the API description for service with the swag
// registry and returns it. Registering the same service twice returns the
// existing description.
func RegisterDoc(service, version string) swag.Swagger {
	registerMu.Lock()
	defer registerMu.Unlock()

	if existing := swag.GetSwagger(service); existing != nil {
		return existing
	}
	spec := &swag.Spec{
		Version:          version,
		BasePath:         "/",
		Schemes:          []string{},
		Title:            "storefront " + service,
		Description:      "HTTP surface of the " + service + " service.",
		InfoInstanceName: service,
		SwaggerTemplate:  docTemplate,
		LeftDelim:        "{{",
		RightDelim:       "}}",
	}
	swag.Register(spec.InstanceName(), spec)
	return spec
}
