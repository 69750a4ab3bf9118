package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	// Client addresses come from the socket; forwarded headers are not trusted.
	_ = r.SetTrustedProxies(nil)

	r.Use(gin.Recovery(), securityHeaders(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api", s.rateLimit("general", s.generalLimiter))

	authGroup := api.Group("/auth")
	limited := authGroup.Group("", s.rateLimit("auth", s.authLimiter))
	limited.POST("/register", s.register)
	limited.POST("/login", s.login)
	limited.POST("/forgot-password", s.forgotPassword)
	limited.POST("/reset-password", s.resetPassword)

	session := authGroup.Group("", s.requireSession())
	session.POST("/change-password", s.changePassword)
	session.GET("/me", s.me)

	admin := api.Group("/admin", s.requireSession(), requireAdmin())
	admin.GET("/activity-logs", s.activityLogs)
	admin.POST("/activity-logs/archive", s.archiveActivity)
	admin.GET("/users", s.listUsers)
	admin.GET("/users/:id", s.getUser)
	admin.PUT("/users/:id/role", s.setRole)

	return r
}
