// Package http wires the Gin router for the phone auth service.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/disruption-hub/chat-auth/internal/http/handler"
	"github.com/disruption-hub/chat-auth/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware. ready reports storage health
// for the /healthz endpoint; pass nil to always report healthy.
func NewRouter(serviceName string, authHandler *handler.AuthHandler, ready func(context.Context) error) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(nil))
	r.Use(otelgin.Middleware(serviceName))

	phone := r.Group("/auth/phone")
	{
		phone.POST("/request", authHandler.RequestOTP)
		phone.POST("/verify", authHandler.VerifyOTP)
		phone.POST("/sync", authHandler.Sync)
		phone.POST("/session", authHandler.ValidateSession)
		phone.DELETE("/session", authHandler.RevokeSession)
		phone.GET("/profile", authHandler.Profile)
	}

	r.GET("/healthz", func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
