package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/services"
)

type ReportHandler struct {
	svc *services.ReportService
}

func NewReportHandler(svc *services.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// GET /reports/summary — сводка по воронке proposals.
func (h *ReportHandler) GetSummary(c *gin.Context) {
	summary, err := h.svc.Summary()
	if err != nil {
		log.Printf("[report][summary][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
