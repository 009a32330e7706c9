package admin

import (
	"github.com/ZJUSCT/OITrack/internal/api"
	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/pubsub"
	"github.com/ZJUSCT/OITrack/internal/virtual"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewAdminRouter creates and configures the admin Gin engine. It carries no
// authentication and is meant to listen on a private address.
func NewAdminRouter(
	cfg *config.Config,
	db *gorm.DB,
	service *virtual.Service,
	broker *pubsub.Broker) *gin.Engine {

	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, service, broker)

	v1 := r.Group("/api/v1")
	{
		// Websocket
		v1.GET("/ws/virtual/sync/:userID", h.handleAdminSyncWs)

		admin := v1.Group("/admin")
		{
			// Catalogue
			admin.POST("/contests/reload", h.reload)
			admin.GET("/contests", h.getAllContests)
			admin.GET("/contests/:id", h.getContest)

			// User Management
			users := admin.Group("/users")
			{
				users.GET("", h.getAllUsers)
				users.GET("/:id", h.getUser)
				users.GET("/:id/history", h.getUserHistory)
				users.POST("/:id/reset-password", h.resetUserPassword)
			}

			// Attempts in progress
			active := admin.Group("/virtual/active")
			{
				active.GET("", h.getActiveContests)
				active.DELETE("/:userID", h.abortActiveContest)
			}
		}
	}

	return r
}
