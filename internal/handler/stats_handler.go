package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crm-admin-api/internal/middleware"
	"github.com/noah-isme/crm-admin-api/internal/models"
	"github.com/noah-isme/crm-admin-api/pkg/response"
)

type statsService interface {
	List(ctx context.Context) ([]models.Stat, bool, error)
	UserDistribution(ctx context.Context) ([]models.RoleShare, bool, error)
}

// StatsHandler serves dashboard aggregates.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// List godoc
// @Summary Dashboard KPI cards
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) List(c *gin.Context) {
	stats, hit, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ResponseMeta(c))
}

// UserDistribution godoc
// @Summary Users per role
// @Description Count and percentage of users for every role
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/user-distribution [get]
func (h *StatsHandler) UserDistribution(c *gin.Context) {
	shares, hit, err := h.service.UserDistribution(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, shares, nil, middleware.ResponseMeta(c))
}
