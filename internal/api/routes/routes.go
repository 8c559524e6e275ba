package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/MKA06/luron-voice/internal/api/handlers"
	"github.com/MKA06/luron-voice/internal/api/middleware"
)

type Deps struct {
	Twilio *handlers.TwilioHandler
	Media  *handlers.MediaHandler
	Call   *handlers.CallHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Twilio webhooks: authenticated by Twilio's signature scheme upstream,
	// not by user JWTs.
	r.POST("/incoming-call", d.Twilio.IncomingCall)
	r.GET("/incoming-call", d.Twilio.IncomingCall)
	r.GET("/media-stream", d.Media.MediaStream)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/calls", d.Call.List)
	auth.GET("/calls/:call_id", d.Call.Get)
}
