package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/everkeep/backend/internal/service"
	"github.com/everkeep/backend/pkg/middleware"
	"github.com/everkeep/backend/pkg/response"
)

// GetLane serves one page of a feed lane
// @Summary Read a feed lane
// @Tags feeds
// @Param lane path string true "GLOBAL | FALLBACK | MEMORIAL:<id> | COMMUNITY | PERSONAL"
// @Param limit query int false "page size" default(20)
// @Param cursor query string false "opaque cursor from a previous page"
// @Param lat query number false "viewer latitude (community lane)"
// @Param lng query number false "viewer longitude (community lane)"
// @Param country query string false "viewer country (community lane)"
// @Success 200 {object} response.Response{data=service.LanePage}
// @Failure 400 {object} response.Response
// @Router /api/v1/feeds/{lane} [get]
func (h *Handler) GetLane(c *gin.Context) {
	lane, err := service.ParseLane(c.Param("lane"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	q := service.LaneQuery{
		Limit:   limit,
		Cursor:  c.Query("cursor"),
		UserID:  middleware.UserID(c),
		Country: c.Query("country"),
	}
	if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		q.Lat = &lat
	}
	if lng, err := strconv.ParseFloat(c.Query("lng"), 64); err == nil {
		q.Lng = &lng
	}

	page, err := h.feedService.GetLane(c.Request.Context(), lane, q)
	if err != nil {
		switch {
		case service.IsValidation(err):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrDependencyUnavailable):
			response.ServiceUnavailable(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Success(c, page)
}

// RebuildMemorialLane enqueues an async lane rebuild
// @Summary Rebuild a memorial's feed lane
// @Tags feeds
// @Param id path string true "memorial id"
// @Success 200 {object} response.Response
// @Router /api/v1/memorials/{id}/feed/rebuild [post]
func (h *Handler) RebuildMemorialLane(c *gin.Context) {
	h.rebuilder.Enqueue(c.Param("id"))
	response.Success(c, nil)
}
