package user

import (
	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/pubsub"
	"github.com/ZJUSCT/OITrack/internal/virtual"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg       *config.Config
	db        *gorm.DB
	service   *virtual.Service
	broker    *pubsub.Broker
	platforms map[string]bool
}

// NewHandler creates a new user handler with its dependencies. platforms
// lists the names users may link a handle for.
func NewHandler(
	cfg *config.Config,
	db *gorm.DB,
	service *virtual.Service,
	broker *pubsub.Broker,
	platforms []string,
) *Handler {
	known := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		known[p] = true
	}
	return &Handler{
		cfg:       cfg,
		db:        db,
		service:   service,
		broker:    broker,
		platforms: known,
	}
}
