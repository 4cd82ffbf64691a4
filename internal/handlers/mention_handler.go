package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/mentions"
	"bizdesk/internal/services"
)

type MentionHandler struct {
	directory *services.Directory
}

func NewMentionHandler(directory *services.Directory) *MentionHandler {
	return &MentionHandler{directory: directory}
}

// GET /mentions/suggest?text=&caret= — подсказки для токена под кареткой.
// Если активного @-токена нет, отдаём пустой список.
func (h *MentionHandler) Suggest(c *gin.Context) {
	text := c.Query("text")
	caret, err := strconv.Atoi(c.DefaultQuery("caret", strconv.Itoa(len(text))))
	if err != nil || caret < 0 || caret > len(text) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid caret"})
		return
	}

	query, start, ok := mentions.ActiveQuery(text, caret)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": false, "suggestions": []any{}})
		return
	}

	users, err := h.directory.ListActiveUsers()
	if err != nil {
		log.Printf("[mention][suggest][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":      true,
		"query":       query,
		"start":       start,
		"suggestions": mentions.Suggest(users, query),
	})
}

// POST /mentions/insert — замена активного токена на выбранного
// пользователя; возвращает новый текст и позицию каретки.
func (h *MentionHandler) Insert(c *gin.Context) {
	var req struct {
		Text    string `json:"text"`
		Caret   int    `json:"caret"`
		Start   int    `json:"start"`
		Display string `json:"display" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Start < 0 || req.Caret < req.Start || req.Caret > len(req.Text) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid caret/start"})
		return
	}
	text, caret := mentions.Insert(req.Text, req.Caret, req.Start, req.Display)
	c.JSON(http.StatusOK, gin.H{"text": text, "caret": caret})
}
