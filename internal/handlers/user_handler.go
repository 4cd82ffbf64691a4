package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/services"
)

type UserHandler struct {
	directory *services.Directory
}

func NewUserHandler(directory *services.Directory) *UserHandler {
	return &UserHandler{directory: directory}
}

// GET /users — активные пользователи: кандидаты для назначения этапов
// и @mention.
func (h *UserHandler) ListActive(c *gin.Context) {
	users, err := h.directory.ListActiveUsers()
	if err != nil {
		log.Printf("[user][list][err] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// GET /users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	u, err := h.directory.GetUserByID(c.Param("id"))
	if err != nil {
		log.Printf("[user][getByID][err] id=%s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, u)
}
