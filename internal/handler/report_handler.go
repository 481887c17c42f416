package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Rileydk/Pomodoro/internal/errors"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/service"
)

type ReportHandler struct {
	reportService *service.ReportService
}

type resetReportsRequest struct {
	Kinds []string `json:"kinds"`
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Details lists focus or rest records. scope defaults to daily.
func (h *ReportHandler) Details(c *gin.Context) {
	kind, err := model.ParseRecordKind(c.DefaultQuery("kind", string(model.RecordFocus)))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_kind", err.Error()))
		return
	}
	scope, err := model.ParseReportKind(c.DefaultQuery("scope", string(model.ReportDaily)))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_scope", err.Error()))
		return
	}
	date, apiErr := h.reportService.ParseDate(c.Query("date"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	view, apiErr := h.reportService.Details(c.Request.Context(), kind, scope, date)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Rollups lists daily, weekly or monthly rows. scope defaults to the kind.
func (h *ReportHandler) Rollups(c *gin.Context) {
	kind, err := model.ParseReportKind(c.DefaultQuery("kind", string(model.ReportDaily)))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_kind", err.Error()))
		return
	}
	scope, err := model.ParseReportKind(c.DefaultQuery("scope", string(kind)))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_scope", err.Error()))
		return
	}
	date, apiErr := h.reportService.ParseDate(c.Query("date"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	view, apiErr := h.reportService.Rollups(c.Request.Context(), kind, scope, date)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ReportHandler) Reset(c *gin.Context) {
	var req resetReportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	kinds := make([]model.ReportKind, 0, len(req.Kinds))
	for _, raw := range req.Kinds {
		kind, err := model.ParseReportKind(raw)
		if err != nil {
			writeError(c, apperrors.BadRequest("invalid_kinds", err.Error()))
			return
		}
		kinds = append(kinds, kind)
	}

	if apiErr := h.reportService.Reset(c.Request.Context(), kinds); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": kinds, "status": h.reportService.Status()})
}
