package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/config"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/handlers"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/middleware"
)

// AgentPrefix roots the agent's own endpoints. Every other path goes to the offline worker.
const AgentPrefix = "/__yokaidle"

func NewRouter(cfg config.Config, logger *logging.Logger, sh *handlers.SyncHandler, ph *handlers.PushHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		sync := api.Group("/sync")
		sync.Use(middleware.Auth(cfg.AuthToken))
		sync.GET("", sh.Pull)
		sync.POST("", sh.Push)

		push := api.Group("/push")
		push.GET("/vapid-public-key", ph.PublicKey)
		push.POST("/subscribe", ph.Subscribe)
		push.POST("/unsubscribe", ph.Unsubscribe)
		push.POST("/send", middleware.PushSecret(cfg.Push.Secret), ph.Send)
	}
	return r
}

func NewAgentRouter(logger *logging.Logger, ah *handlers.AgentHandler, worker http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	a := r.Group(AgentPrefix)
	{
		a.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		a.GET("/progress", ah.Snapshot)
		a.GET("/progress/:slot", ah.GetSlot)
		a.PUT("/progress/:slot", ah.PutSlot)
		a.DELETE("/progress/:slot", ah.DeleteSlot)
		a.POST("/auth", ah.SignIn)
		a.POST("/game-finished", ah.GameFinished)
		a.POST("/sync", ah.SyncNow)
		a.GET("/sync/status", ah.Status)
	}
	r.NoRoute(gin.WrapH(worker))
	return r
}
