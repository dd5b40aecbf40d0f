package handlers

import (
	"net/http"
	"strconv"

	"saasan/internal/middleware"
	"saasan/internal/services"

	"github.com/gin-gonic/gin"
)

type PoliticianHandler struct {
	politicians *services.PoliticianService
}

func NewPoliticianHandler(politicians *services.PoliticianService) *PoliticianHandler {
	return &PoliticianHandler{politicians: politicians}
}

type politicianRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Party    string `json:"party" binding:"max=200"`
	Position string `json:"position" binding:"max=200"`
	District string `json:"district" binding:"max=100"`
	IsActive bool   `json:"isActive"`
}

// List 政治人物列表，可按选区和在任状态过滤
func (h *PoliticianHandler) List(c *gin.Context) {
	filter := services.PoliticianFilter{District: c.Query("district")}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.AbortError(c, http.StatusBadRequest, "VALIDATION_ERROR", "active must be true or false")
			return
		}
		filter.Active = &active
	}
	list, err := h.politicians.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (h *PoliticianHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req politicianRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.politicians.Create(c.Request.Context(), services.PoliticianInput{
		Name:     req.Name,
		Party:    req.Party,
		Position: req.Position,
		District: req.District,
		IsActive: req.IsActive,
	}, a)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
