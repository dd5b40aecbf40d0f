package handlers

import (
	"net/http"

	"saasan/internal/models"
	"saasan/internal/services"

	"github.com/gin-gonic/gin"
)

type MajorCaseHandler struct {
	cases *services.MajorCaseService
}

func NewMajorCaseHandler(cases *services.MajorCaseService) *MajorCaseHandler {
	return &MajorCaseHandler{cases: cases}
}

type majorCaseRequest struct {
	Title          string            `json:"title" binding:"required,max=200"`
	Summary        string            `json:"summary" binding:"max=10000"`
	Status         models.CaseStatus `json:"status" binding:"omitempty,oneof=solved ongoing unsolved"`
	AmountInvolved *float64          `json:"amountInvolved" binding:"omitempty,gte=0"`
}

type majorCaseStatusRequest struct {
	Status models.CaseStatus `json:"status" binding:"required,oneof=solved ongoing unsolved"`
}

func (h *MajorCaseHandler) List(c *gin.Context) {
	list, err := h.cases.List(c.Request.Context(), models.CaseStatus(c.Query("status")))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (h *MajorCaseHandler) Get(c *gin.Context) {
	mc, err := h.cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mc)
}

func (h *MajorCaseHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req majorCaseRequest
	if !bind(c, &req) {
		return
	}
	mc, err := h.cases.Create(c.Request.Context(), services.MajorCaseInput{
		Title:          req.Title,
		Summary:        req.Summary,
		Status:         req.Status,
		AmountInvolved: req.AmountInvolved,
	}, a)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mc)
}

func (h *MajorCaseHandler) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req majorCaseStatusRequest
	if !bind(c, &req) {
		return
	}
	mc, err := h.cases.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, a)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mc)
}
