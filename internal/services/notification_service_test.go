package services

import (
	"sync"
	"testing"

	"bizdesk/internal/models"
)

type recordingSink struct {
	mu   sync.Mutex
	rows []*models.Notification
}

func (s *recordingSink) Create(n *models.Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, n)
	return int64(len(s.rows)), nil
}

func (s *recordingSink) recipients() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, n := range s.rows {
		out[n.UserID]++
	}
	return out
}

func TestNotifyAssigneesDistinctRecipients(t *testing.T) {
	sink := &recordingSink{}
	svc := NewNotificationService(sink, nil, nil, nil, nil)

	// три пользователя, каждый назначен на несколько этапов
	p := &models.Proposal{Title: "Proposal for Acme", Stages: []models.Stage{
		{AssigneeID: "u1"},
		{AssigneeID: "u2"},
		{AssigneeID: "u1"},
		{AssigneeID: "u3"},
		{AssigneeID: ""},
		{AssigneeID: "u2"},
	}}

	svc.NotifyAssignees(p, "title", "message", "link")

	got := sink.recipients()
	if len(got) != 3 {
		t.Fatalf("notified %d recipients, want 3: %v", len(got), got)
	}
	for _, id := range []string{"u1", "u2", "u3"} {
		if got[id] != 1 {
			t.Errorf("recipient %s got %d notifications, want 1", id, got[id])
		}
	}
}

func TestNotifyAssigneesNoAssignees(t *testing.T) {
	sink := &recordingSink{}
	svc := NewNotificationService(sink, nil, nil, nil, nil)

	p := &models.Proposal{Stages: models.DefaultStages()}
	svc.NotifyAssignees(p, "title", "message", "link")

	if len(sink.recipients()) != 0 {
		t.Error("unassigned proposal must produce no notifications")
	}
	svc.NotifyAssignees(nil, "title", "message", "link")
}

func TestNotifyUserStoresRow(t *testing.T) {
	sink := &recordingSink{}
	svc := NewNotificationService(sink, nil, nil, nil, nil)

	svc.NotifyUser("u1", "Title", "Message", "#/clients?opportunity=1&tab=proposals")
	svc.NotifyUser("", "Title", "Message", "link")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.rows) != 1 {
		t.Fatalf("stored %d rows, want 1", len(sink.rows))
	}
	row := sink.rows[0]
	if row.UserID != "u1" || row.Type != "proposal" || row.Link == "" {
		t.Errorf("row = %+v", row)
	}
}
