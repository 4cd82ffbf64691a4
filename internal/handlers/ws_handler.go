package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/realtime"
	"bizdesk/internal/services"
)

type WSHandler struct {
	hub *realtime.ProposalHub
	svc *services.ProposalService
}

func NewWSHandler(hub *realtime.ProposalHub, svc *services.ProposalService) *WSHandler {
	return &WSHandler{hub: hub, svc: svc}
}

// GET /ws/opportunities/:id — снапшот-фид merged-списка. Сразу после
// апгрейда шлём текущее состояние, дальше — broadcast после каждого merge.
func (h *WSHandler) Subscribe(c *gin.Context) {
	oppID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid opportunity id"})
		return
	}

	proposals, err := h.svc.Proposals(oppID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}

	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Printf("[ws] upgrade failed opp=%d: %v", oppID, err)
		return
	}

	h.hub.Subscribe(oppID, conn)
	if err := conn.WriteJSON(gin.H{"type": "proposals", "opportunity_id": oppID, "proposals": proposals}); err != nil {
		h.hub.Unsubscribe(oppID, conn)
		_ = conn.Close()
		return
	}

	go func() {
		_ = conn.Drain()
		h.hub.Unsubscribe(oppID, conn)
		_ = conn.Close()
	}()
}
