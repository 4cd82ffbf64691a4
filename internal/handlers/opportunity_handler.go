package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
)

type OpportunityHandler struct {
	repo *repositories.OpportunityRepository
}

func NewOpportunityHandler(repo *repositories.OpportunityRepository) *OpportunityHandler {
	return &OpportunityHandler{repo: repo}
}

// POST /opportunities
func (h *OpportunityHandler) Create(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	log.Printf("[opportunity][create] call by userID=%s role=%d", userID, roleID)

	var req struct {
		ClientID int     `json:"client_id"`
		Title    string  `json:"title" binding:"required"`
		Status   string  `json:"status"`
		Stage    string  `json:"stage"`
		Value    float64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[opportunity][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o := &models.Opportunity{
		ClientID:  req.ClientID,
		Title:     req.Title,
		Status:    models.NormalizeLifecycle(req.Status),
		Stage:     models.FunnelStage(req.Stage),
		Value:     req.Value,
		Proposals: []models.Proposal{},
	}
	if o.Stage == "" {
		o.Stage = models.FunnelAwareness
	}

	id, err := h.repo.Create(o)
	if err != nil {
		log.Printf("[opportunity][create][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create opportunity"})
		return
	}
	o.ID = int(id)
	log.Printf("[opportunity][create][ok] id=%d title=%q", o.ID, o.Title)
	c.JSON(http.StatusCreated, o)
}

// GET /opportunities/:id
func (h *OpportunityHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := h.repo.GetByID(id)
	if err != nil {
		log.Printf("[opportunity][getByID][err] id=%d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load opportunity"})
		return
	}
	if o == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

// PUT /opportunities/:id — метаданные; список proposals меняется только
// через /proposals-роуты.
func (h *OpportunityHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req struct {
		ClientID int     `json:"client_id"`
		Title    string  `json:"title"`
		Status   string  `json:"status"`
		Stage    string  `json:"stage"`
		Value    float64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load opportunity"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}

	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.Status != "" {
		existing.Status = models.NormalizeLifecycle(req.Status)
	}
	if req.Stage != "" {
		existing.Stage = models.FunnelStage(req.Stage)
	}
	if req.ClientID != 0 {
		existing.ClientID = req.ClientID
	}
	if req.Value != 0 {
		existing.Value = req.Value
	}

	if err := h.repo.Update(existing); err != nil {
		log.Printf("[opportunity][update][err] id=%d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update opportunity"})
		return
	}
	c.JSON(http.StatusOK, existing)
}

// DELETE /opportunities/:id
func (h *OpportunityHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.repo.Delete(id); err != nil {
		log.Printf("[opportunity][delete][err] id=%d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete opportunity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// GET /opportunities?limit=&offset=
func (h *OpportunityHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	opps, err := h.repo.ListPaginated(limit, offset)
	if err != nil {
		log.Printf("[opportunity][list][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list opportunities"})
		return
	}
	c.JSON(http.StatusOK, opps)
}
