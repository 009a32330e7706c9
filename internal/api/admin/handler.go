package admin

import (
	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/pubsub"
	"github.com/ZJUSCT/OITrack/internal/virtual"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the admin API handlers.
type Handler struct {
	cfg     *config.Config
	db      *gorm.DB
	service *virtual.Service
	broker  *pubsub.Broker
}

// NewHandler creates a new admin handler with its dependencies.
func NewHandler(
	cfg *config.Config,
	db *gorm.DB,
	service *virtual.Service,
	broker *pubsub.Broker,
) *Handler {
	return &Handler{
		cfg:     cfg,
		db:      db,
		service: service,
		broker:  broker,
	}
}
