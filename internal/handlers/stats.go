package handlers

import (
	"net/http"

	"saasan/internal/services"
	"saasan/internal/utils"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) Overview(c *gin.Context) {
	ov, err := h.stats.Overview(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *StatsHandler) Categories(c *gin.Context) {
	breakdown, err := h.stats.CategoryBreakdown(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func (h *StatsHandler) MajorCases(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"), services.DefaultMajorCases)
	cases, err := h.stats.MajorCases(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cases})
}
