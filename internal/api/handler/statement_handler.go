package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/everkeep/backend/internal/model"
	"github.com/everkeep/backend/internal/service"
	"github.com/everkeep/backend/pkg/middleware"
	"github.com/everkeep/backend/pkg/response"
)

type recordStatementRequest struct {
	Type            string          `json:"type" binding:"required"`
	Payload         map[string]any  `json:"payload"`
	Parts           []model.Segment `json:"parts"`
	Locale          string          `json:"locale"`
	MemorialID      *string         `json:"memorial_id"`
	FundraiserID    *string         `json:"fundraiser_id"`
	ObituaryID      *string         `json:"obituary_id"`
	AudienceClasses []string        `json:"audience_classes"`
	AudienceUserIDs []string        `json:"audience_user_ids"`
	Lat             *float64        `json:"lat"`
	Lng             *float64        `json:"lng"`
	Country         string          `json:"country"`
	Visibility      string          `json:"visibility"`
	Metadata        map[string]any  `json:"metadata"`
}

// RecordStatement persists a structured activity statement
// @Summary Record an activity statement
// @Tags statements
// @Accept json
// @Produce json
// @Param request body recordStatementRequest true "statement input"
// @Success 200 {object} response.Response{data=model.ActivityStatement}
// @Failure 400 {object} response.Response
// @Router /api/v1/statements [post]
func (h *Handler) RecordStatement(c *gin.Context) {
	var req recordStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	in := service.RecordStatementInput{
		Type:            model.StatementType(req.Type),
		Payload:         req.Payload,
		Parts:           req.Parts,
		Locale:          req.Locale,
		MemorialID:      req.MemorialID,
		FundraiserID:    req.FundraiserID,
		ObituaryID:      req.ObituaryID,
		AudienceClasses: req.AudienceClasses,
		AudienceUserIDs: req.AudienceUserIDs,
		Lat:             req.Lat,
		Lng:             req.Lng,
		Country:         req.Country,
		Visibility:      req.Visibility,
		Metadata:        req.Metadata,
	}
	if uid := middleware.UserID(c); uid != "" {
		in.ActorUserID = &uid
	}

	st, err := h.feedService.RecordActivityStatement(c.Request.Context(), in)
	if err != nil {
		switch {
		case service.IsValidation(err), errors.Is(err, service.ErrTemplateNotFound):
			response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrDependencyUnavailable):
			response.ServiceUnavailable(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Success(c, st)
}
