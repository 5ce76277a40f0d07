package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamgate/version"
)

var startTime = time.Now()

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	GitCommit string            `json:"git_commit,omitempty"`
	BuildTime string            `json:"build_time,omitempty"`
	GoVersion string            `json:"go_version"`
	Release   bool              `json:"is_release"`
	Dirty     bool              `json:"is_dirty"`
	Uptime    string            `json:"uptime"`
	Settings  map[string]string `json:"settings,omitempty"`
}

// Info reports build information, uptime and the non-secret settings the
// operator chose to expose (backend provider, stream window).
func Info(serviceName string, settings map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.Get()
		c.JSON(http.StatusOK, InfoResponse{
			Service:   serviceName,
			Version:   v.Version,
			GitCommit: v.GitCommit,
			BuildTime: v.BuildTime,
			GoVersion: v.GoVersion,
			Release:   v.IsRelease,
			Dirty:     v.IsDirty,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Settings:  settings,
		})
	}
}
