package handlers

import (
	"net/http"
	"regexp"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version is set via ldflags at build time, usually to `git describe --tags --dirty`
var Version = "dev"

// VersionResponse is the body of GET /version
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

var (
	describeRe = regexp.MustCompile(`^(.*)-\d+-g([0-9a-f]+)$`)
	commitRe   = regexp.MustCompile(`^[0-9a-f]{7,40}$`)
)

// parseGitDescribe turns git describe output into a PEP 440 style version
// and the commit it was built from.
func parseGitDescribe(s string) (version, commit string) {
	base, dirty := strings.CutSuffix(s, "-dirty")

	if m := describeRe.FindStringSubmatch(base); m != nil {
		return strings.TrimPrefix(m[1], "v") + ".dev+" + m[2], m[2]
	}
	if commitRe.MatchString(base) {
		return "dev+" + base, base
	}

	version = strings.TrimPrefix(base, "v")
	if dirty {
		version += ".dev"
	}
	return version, ""
}

// GetVersion godoc
// @Summary Get version information
// @Description Returns version information about the refstore server
// @Tags system
// @Produce json
// @Success 200 {object} VersionResponse
// @Router /version [get]
func GetVersion(c *gin.Context) {
	version, commit := parseGitDescribe(Version)
	c.JSON(http.StatusOK, VersionResponse{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	})
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports whether the server can reach its database
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: err.Error()})
			return
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
	}
}
