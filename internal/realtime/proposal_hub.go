package realtime

import (
	"sync"

	"bizdesk/internal/models"
)

// ProposalHub pushes merged proposal snapshots to every view subscribed
// to an opportunity, so concurrently open screens converge on the
// canonical list without polling.
type ProposalHub struct {
	mu    sync.RWMutex
	rooms map[int]map[*Conn]struct{}
}

type snapshotEvent struct {
	Type          string            `json:"type"`
	OpportunityID int               `json:"opportunity_id"`
	Proposals     []models.Proposal `json:"proposals"`
}

func NewProposalHub() *ProposalHub {
	return &ProposalHub{
		rooms: make(map[int]map[*Conn]struct{}),
	}
}

func (h *ProposalHub) Subscribe(oppID int, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[oppID] == nil {
		h.rooms[oppID] = make(map[*Conn]struct{})
	}
	h.rooms[oppID][conn] = struct{}{}
}

func (h *ProposalHub) Unsubscribe(oppID int, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[oppID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, oppID)
		}
	}
}

// Broadcast sends the merged list to every subscriber; dead connections
// are dropped from the room.
func (h *ProposalHub) Broadcast(oppID int, proposals []models.Proposal) {
	event := snapshotEvent{Type: "proposals", OpportunityID: oppID, Proposals: proposals}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[oppID]))
	for c := range h.rooms[oppID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(event); err != nil {
			h.Unsubscribe(oppID, c)
			_ = c.Close()
		}
	}
}
