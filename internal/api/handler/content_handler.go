package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/everkeep/backend/internal/model"
	"github.com/everkeep/backend/internal/repository"
	"github.com/everkeep/backend/pkg/middleware"
	"github.com/everkeep/backend/pkg/response"
)

type createPostRequest struct {
	MemorialID *string  `json:"memorial_id"`
	Visibility string   `json:"visibility"`
	Tags       []string `json:"tags"`
	MediaType  string   `json:"media_type"`
	MediaURL   string   `json:"media_url"`
	DurationMs int64    `json:"duration_ms"`
}

// CreatePost stores a draft post
// @Summary Create a draft post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body createPostRequest true "post input"
// @Success 200 {object} response.Response{data=model.ContentItem}
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := middleware.UserID(c)
	if userID == "" {
		response.BadRequest(c, "missing caller identity")
		return
	}
	item := &model.ContentItem{
		AuthorID:   userID,
		MemorialID: req.MemorialID,
		Visibility: req.Visibility,
		Tags:       req.Tags,
		Media:      model.Media{Type: req.MediaType, URL: req.MediaURL, DurationMs: req.DurationMs},
	}
	if err := h.contentService.CreateDraft(c.Request.Context(), item); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, item)
}

// PublishPost publishes a draft and fast-path appends it to its memorial lane
// @Summary Publish a post
// @Tags posts
// @Param id path string true "post id"
// @Success 200 {object} response.Response{data=model.ContentItem}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/publish [post]
func (h *Handler) PublishPost(c *gin.Context) {
	item, err := h.contentService.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, item)
}

// LikePost records a like
// @Summary Like a post
// @Tags posts
// @Param id path string true "post id"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{id}/like [post]
func (h *Handler) LikePost(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.BadRequest(c, "missing caller identity")
		return
	}
	if err := h.contentService.Like(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UnlikePost removes a like
// @Summary Unlike a post
// @Tags posts
// @Param id path string true "post id"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{id}/like [delete]
func (h *Handler) UnlikePost(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.BadRequest(c, "missing caller identity")
		return
	}
	if err := h.contentService.Unlike(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

type impressionRequest struct {
	WatchTimeMs int64 `json:"watch_time_ms"`
}

// RecordImpression bumps impression and watch-time counters
// @Summary Record an impression
// @Tags posts
// @Param id path string true "post id"
// @Param request body impressionRequest false "watch time"
// @Success 200 {object} response.Response
// @Router /api/v1/posts/{id}/impression [post]
func (h *Handler) RecordImpression(c *gin.Context) {
	var req impressionRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.contentService.RecordImpression(c.Request.Context(), c.Param("id"), req.WatchTimeMs); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
