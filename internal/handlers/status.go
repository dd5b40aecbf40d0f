package handlers

import (
	"net/http"

	"saasan/internal/models"
	"saasan/internal/services"

	"github.com/gin-gonic/gin"
)

type StatusHandler struct {
	reports *services.ReportService
}

func NewStatusHandler(reports *services.ReportService) *StatusHandler {
	return &StatusHandler{reports: reports}
}

type statusUpdateRequest struct {
	Status  models.Status `json:"status" binding:"required,oneof=submitted under_review verified resolved rejected"`
	Comment string        `json:"comment" binding:"max=10000"`
}

// AddStatusUpdate 调查员推进举报状态
func (h *StatusHandler) AddStatusUpdate(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req statusUpdateRequest
	if !bind(c, &req) {
		return
	}
	report, err := h.reports.AddStatusUpdate(c.Request.Context(), c.Param("id"), services.StatusUpdateInput{
		Status:  req.Status,
		Comment: req.Comment,
	}, a)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}
