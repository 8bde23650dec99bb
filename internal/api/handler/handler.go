package handler

import (
	"github.com/everkeep/backend/internal/service"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	feedService    *service.FeedService
	contentService *service.ContentService
	rebuilder      *service.LaneRebuilder
}

func New(feed *service.FeedService, content *service.ContentService, rebuilder *service.LaneRebuilder) *Handler {
	return &Handler{feedService: feed, contentService: content, rebuilder: rebuilder}
}
