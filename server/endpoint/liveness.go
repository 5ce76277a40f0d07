// Package endpoint provides the probe handlers every deployment expects.
package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LivenessMessage is the body of GET /.
const LivenessMessage = "Server is up and running!"

// Liveness answers with a plain-text banner once the process can serve.
func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, LivenessMessage)
	}
}
