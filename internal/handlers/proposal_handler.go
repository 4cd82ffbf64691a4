package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/models"
	"bizdesk/internal/pdf"
	"bizdesk/internal/repositories"
	"bizdesk/internal/services"
)

type ProposalHandler struct {
	svc       *services.ProposalService
	directory *services.Directory
	oppRepo   *repositories.OpportunityRepository
	pdfGen    pdf.Generator
}

func NewProposalHandler(svc *services.ProposalService, directory *services.Directory, oppRepo *repositories.OpportunityRepository, pdfGen pdf.Generator) *ProposalHandler {
	return &ProposalHandler{svc: svc, directory: directory, oppRepo: oppRepo, pdfGen: pdfGen}
}

// actor resolves the authenticated user for audit fields. Lookup failures
// degrade to an id-only actor so the workflow itself never blocks on the
// directory.
func (h *ProposalHandler) actor(c *gin.Context) *models.User {
	userID, _ := getUserAndRole(c)
	if userID == "" {
		return &models.User{}
	}
	u, err := h.directory.GetUserByID(userID)
	if err != nil || u == nil {
		log.Printf("[proposal] actor lookup failed userID=%s: %v", userID, err)
		return &models.User{ID: userID}
	}
	return u
}

func (h *ProposalHandler) ids(c *gin.Context) (oppID int, proposalID string, ok bool) {
	oppID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid opportunity id"})
		return 0, "", false
	}
	return oppID, c.Param("pid"), true
}

func (h *ProposalHandler) stageIdx(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage index"})
		return 0, false
	}
	return idx, true
}

// respondMerged отдаёт каноничный merged-список — то, что видит каждый
// открытый экран после любой мутации.
func (h *ProposalHandler) respondMerged(c *gin.Context, oppID int, status int) {
	proposals, err := h.svc.Proposals(oppID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, gin.H{"proposals": proposals})
}

func (h *ProposalHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOpportunityNotFound),
		errors.Is(err, services.ErrProposalNotFound),
		errors.Is(err, services.ErrStageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("[proposal][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GET /opportunities/:id/proposals
func (h *ProposalHandler) List(c *gin.Context) {
	oppID, _, ok := h.ids(c)
	if !ok {
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// POST /opportunities/:id/proposals
// Повторный клик внутри окна дублей — не ошибка: отдаём текущий список.
func (h *ProposalHandler) Create(c *gin.Context) {
	oppID, _, ok := h.ids(c)
	if !ok {
		return
	}
	created, err := h.svc.CreateProposal(oppID, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if created == nil {
		h.respondMerged(c, oppID, http.StatusOK)
		return
	}
	h.respondMerged(c, oppID, http.StatusCreated)
}

// PUT /opportunities/:id/proposals/:pid/name
func (h *ProposalHandler) Rename(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Rename(oppID, pid, req.Name); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// DELETE /opportunities/:id/proposals/:pid
func (h *ProposalHandler) Delete(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteProposal(oppID, pid); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// PUT /opportunities/:id/proposals/:pid/link
func (h *ProposalHandler) SetLink(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	var req struct {
		Link string `json:"link"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetWorkingDocumentLink(oppID, pid, req.Link); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// PUT /opportunities/:id/proposals/:pid/pricing
func (h *ProposalHandler) SetPricing(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	var req models.Pricing
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetPricing(oppID, pid, req); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// POST /opportunities/:id/proposals/:pid/stages/:idx/approve
func (h *ProposalHandler) ApproveStage(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	idx, ok := h.stageIdx(c)
	if !ok {
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	_ = c.ShouldBindJSON(&req) // тело опционально
	if err := h.svc.ApproveStage(oppID, pid, idx, h.actor(c), req.Comment); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// POST /opportunities/:id/proposals/:pid/stages/:idx/reject
func (h *ProposalHandler) RejectStage(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	idx, ok := h.stageIdx(c)
	if !ok {
		return
	}
	var req struct {
		Reason  string `json:"reason"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RejectStage(oppID, pid, idx, h.actor(c), req.Reason, req.Comment); err != nil {
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// POST /opportunities/:id/proposals/:pid/stages/:idx/assign
func (h *ProposalHandler) AssignStage(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	idx, ok := h.stageIdx(c)
	if !ok {
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AssignStage(oppID, pid, idx, req.UserID); err != nil {
		if err.Error() == "user not found" {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// POST /opportunities/:id/proposals/:pid/stages/:idx/comments
func (h *ProposalHandler) CommentStage(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	idx, ok := h.stageIdx(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comment, err := h.svc.CommentStage(oppID, pid, idx, req.Text, h.actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	proposals, err := h.svc.Proposals(oppID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment, "proposals": proposals})
}

// POST /opportunities/:id/proposals/:pid/stages/:idx/status
func (h *ProposalHandler) SetStageStatus(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	idx, ok := h.stageIdx(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetStageStatus(oppID, pid, idx, models.StageStatus(req.Status)); err != nil {
		if err.Error() == "invalid status transition" {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.fail(c, err)
		return
	}
	h.respondMerged(c, oppID, http.StatusOK)
}

// GET /opportunities/:id/proposals/:pid/pdf
func (h *ProposalHandler) ExportPDF(c *gin.Context) {
	oppID, pid, ok := h.ids(c)
	if !ok {
		return
	}
	p, err := h.svc.ProposalByID(oppID, pid)
	if err != nil {
		h.fail(c, err)
		return
	}
	opp, err := h.oppRepo.GetByID(oppID)
	if err != nil || opp == nil {
		h.fail(c, services.ErrOpportunityNotFound)
		return
	}

	path, err := h.pdfGen.GenerateProposalSummary(pdf.ProposalSummaryData{
		OpportunityTitle: opp.Title,
		Proposal:         *p,
	})
	if err != nil {
		log.Printf("[proposal][pdf][err] opp=%d pid=%s: %v", oppID, pid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate pdf"})
		return
	}
	c.FileAttachment(path, p.ID+".pdf")
}
