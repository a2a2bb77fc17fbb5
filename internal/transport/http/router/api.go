package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-library-api/internal/core/auth"
	mdw "go-library-api/internal/transport/http/middleware"
)

// NewAPIEngine builds the patron-facing engine. Modules are mounted through
// the registry; the public group carries a per-IP limiter on top of the
// global one since it includes the login endpoints.
func NewAPIEngine(l *zap.Logger, jwter *auth.JWTer) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.SimpleRecovery(),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	api := r.Group("/api/v1")

	pub := api.Group("")
	pub.Use(mdw.RateLimitPerIP(5, 10))

	priv := api.Group("")
	priv.Use(mdw.AuthJWT(jwter, ""))

	MountAllAPI(pub, priv)

	return r
}
