package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-library-api/internal/core/auth"
	"go-library-api/internal/core/server"
	"go-library-api/internal/domain"
	mdw "go-library-api/internal/transport/http/middleware"
)

// NewAdminEngine builds the librarian engine: separate port, librarian role
// required on the whole /admin/v1 group, prometheus scrape endpoint.
func NewAdminEngine(l *zap.Logger, jwter *auth.JWTer) *gin.Engine {
	r := server.NewRouter(l)

	r.Use(
		mdw.RequestID(),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, domain.RoleLibrarian))

	MountAllAdmin(admin)

	return r
}
