package endpoint

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/storefront/version"
)

// startTime records when the process started for uptime calculation.
var startTime = time.Now()

// ServiceInfo identifies the running instance.
type ServiceInfo struct {
	Name        string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	InstanceID  string `json:"instance_id"`
}

// Info returns a handler that reports service identity and uptime.
func Info(info ServiceInfo) gin.HandlerFunc {
	build := version.Get()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"build":       build.Short(),
			"service":     info.Name,
			"version":     info.Version,
			"environment": info.Environment,
			"instance_id": info.InstanceID,
			"go_version":  runtime.Version(),
			"uptime":      time.Since(startTime).String(),
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
