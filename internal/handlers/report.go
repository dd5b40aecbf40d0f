package handlers

import (
	"net/http"

	"saasan/internal/middleware"
	"saasan/internal/models"
	"saasan/internal/services"
	"saasan/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type createReportRequest struct {
	Title          string          `json:"title" binding:"required,max=200"`
	Description    string          `json:"description" binding:"required,max=10000"`
	Category       models.Category `json:"category" binding:"omitempty,oneof=corruption bribery abuse_of_power nepotism other"`
	IsAnonymous    bool            `json:"isAnonymous"`
	Location       string          `json:"location" binding:"max=255"`
	District       string          `json:"district" binding:"max=100"`
	AmountInvolved *float64        `json:"amountInvolved" binding:"omitempty,gte=0"`
}

type updateReportRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description" binding:"omitempty,max=10000"`
}

// reportDetail is the full report view served by GET /reports/:id.
type reportDetail struct {
	*models.Report
	DescriptionHTML string                       `json:"descriptionHtml"`
	Verification    *services.VerificationStatus `json:"verification"`
}

// Create 提交举报。实名举报需要登录，匿名举报不记录提交人
func (h *ReportHandler) Create(c *gin.Context) {
	var req createReportRequest
	if !bind(c, &req) {
		return
	}
	in := services.CreateReportInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		IsAnonymous:    req.IsAnonymous,
		Location:       req.Location,
		District:       req.District,
		AmountInvolved: req.AmountInvolved,
	}
	if a, ok := middleware.CurrentActor(c); ok && !req.IsAnonymous {
		in.ReporterID = a.ID
	} else if !ok && !req.IsAnonymous {
		middleware.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "sign in to file a named report, or report anonymously")
		return
	}

	report, err := h.reports.Create(c.Request.Context(), in)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportDetail{
		Report:          report,
		DescriptionHTML: utils.RenderMarkdown(report.Description),
		Verification:    services.BuildVerification(report),
	})
}

func (h *ReportHandler) List(c *gin.Context) {
	page, err := h.reports.List(c.Request.Context(), services.ListFilter{
		Status:   models.Status(c.Query("status")),
		Category: models.Category(c.Query("category")),
		District: c.Query("district"),
		Page:     utils.StringToInt(c.Query("page"), 1),
		PerPage:  utils.StringToInt(c.Query("perPage"), services.DefaultPerPage),
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ReportHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req updateReportRequest
	if !bind(c, &req) {
		return
	}
	report, err := h.reports.Update(c.Request.Context(), c.Param("id"), services.UpdateReportInput{
		Title:       req.Title,
		Description: req.Description,
	}, a)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) Share(c *gin.Context) {
	a, _ := middleware.CurrentActor(c)
	shares, err := h.reports.Share(c.Request.Context(), c.Param("id"), a.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reportId": c.Param("id"), "sharesCount": shares})
}

func (h *ReportHandler) Verification(c *gin.Context) {
	v, err := h.reports.Verification(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
