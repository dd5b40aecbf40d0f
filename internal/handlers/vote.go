package handlers

import (
	"net/http"

	"saasan/internal/middleware"
	"saasan/internal/models"
	"saasan/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type voteRequest struct {
	Polarity models.Polarity `json:"polarity" binding:"required,oneof=up down"`
}

// Vote 投票：同向再投即撤销，反向则翻转
func (h *VoteHandler) Vote(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req voteRequest
	if !bind(c, &req) {
		return
	}
	tally, err := h.votes.Vote(c.Request.Context(), c.Param("id"), a.ID, req.Polarity)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

// Current returns the tally plus the caller's own vote when signed in.
func (h *VoteHandler) Current(c *gin.Context) {
	a, _ := middleware.CurrentActor(c)
	tally, err := h.votes.CurrentVote(c.Request.Context(), c.Param("id"), a.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}
