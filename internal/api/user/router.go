package user

import (
	"github.com/ZJUSCT/OITrack/internal/api"
	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/pubsub"
	"github.com/ZJUSCT/OITrack/internal/virtual"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewUserRouter creates and configures the user Gin engine.
func NewUserRouter(
	cfg *config.Config,
	db *gorm.DB,
	service *virtual.Service,
	broker *pubsub.Broker,
	platforms []string) *gin.Engine {

	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, service, broker, platforms)

	v1 := r.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.register)
			authGroup.POST("/login", h.login)
		}

		// Live sync progress, token passed as a query parameter
		v1.GET("/ws/virtual/sync", h.handleSyncWs)

		// Context schemas are public
		v1.GET("/data/virtual/contexts", h.getContextSchemas)

		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			userGroup := authed.Group("/user")
			{
				userGroup.GET("/settings/handles", h.getHandles)
				userGroup.PUT("/settings/handles", h.updateHandles)

				vc := userGroup.Group("/virtual")
				{
					vc.POST("/start", h.startVirtual)
					vc.POST("/end", h.endVirtual)
					vc.POST("/confirm", h.confirmVirtual)
					vc.POST("/submit", h.submitVirtual)
					vc.POST("/context", h.setVirtualContext)
				}
			}

			data := authed.Group("/data/virtual")
			{
				data.POST("/summary", h.getSummary)
				data.POST("/history", h.getHistory)
				data.POST("/detail", h.getDetail)
				data.POST("/scores", h.getContestScores)
				data.POST("/stats", h.getStats)
			}
		}
	}

	return r
}
