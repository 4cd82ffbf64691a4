package services

import (
	"sync"
	"testing"
	"time"

	"bizdesk/internal/config"
	"bizdesk/internal/models"
)

type fakeStore struct {
	mu   sync.Mutex
	opps map[int]*models.Opportunity
}

func newFakeStore(opps ...*models.Opportunity) *fakeStore {
	s := &fakeStore{opps: map[int]*models.Opportunity{}}
	for _, o := range opps {
		s.opps[o.ID] = o
	}
	return s
}

func (s *fakeStore) GetByID(id int) (*models.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opps[id], nil
}

func (s *fakeStore) UpdateProposals(id int, proposals []models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.opps[id]; ok {
		o.Proposals = proposals
	}
	return nil
}

type fakeDirectory struct {
	users []*models.User
}

func (d *fakeDirectory) ListActiveUsers() ([]*models.User, error) {
	return d.users, nil
}

func (d *fakeDirectory) GetUserByID(id string) (*models.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

type notice struct {
	userID string
	title  string
}

type fakeNotifier struct {
	mu       sync.Mutex
	assignee []notice // развёрнутые NotifyUser-вызовы не попадают сюда
	direct   []notice
}

func (n *fakeNotifier) NotifyAssignees(p *models.Proposal, title, message, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	seen := map[string]bool{}
	for _, st := range p.Stages {
		if st.AssigneeID == "" || seen[st.AssigneeID] {
			continue
		}
		seen[st.AssigneeID] = true
		n.assignee = append(n.assignee, notice{userID: st.AssigneeID, title: title})
	}
}

func (n *fakeNotifier) NotifyUser(userID, title, message, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.direct = append(n.direct, notice{userID: userID, title: title})
}

func (n *fakeNotifier) directTo(userID string) []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notice
	for _, v := range n.direct {
		if v.userID == userID {
			out = append(out, v)
		}
	}
	return out
}

func testWorkflowConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		DebounceMS:           10,
		DedupWindowMS:        2000,
		CreateGuardReleaseMS: 1,
	}
}

func newTestService(store *fakeStore, dir *fakeDirectory, notifier *fakeNotifier) *ProposalService {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	return NewProposalService(store, dir, notifier, testWorkflowConfig())
}

func opportunity(id int, title string) *models.Opportunity {
	return &models.Opportunity{ID: id, Title: title, Proposals: []models.Proposal{}}
}

func TestCreateProposal(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme Expansion"))
	svc := newTestService(store, nil, &fakeNotifier{})

	p, err := svc.CreateProposal(1, &models.User{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("proposal dropped unexpectedly")
	}
	if p.Title != "Proposal for Acme Expansion" {
		t.Errorf("Title = %q", p.Title)
	}
	if len(p.Stages) != 9 {
		t.Errorf("len(Stages) = %d, want 9", len(p.Stages))
	}

	list, err := svc.Proposals(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Errorf("live list = %+v", list)
	}
}

func TestCreateProposalMissingOpportunity(t *testing.T) {
	svc := newTestService(newFakeStore(), nil, &fakeNotifier{})
	if _, err := svc.CreateProposal(404, &models.User{ID: "u1"}); err != ErrOpportunityNotFound {
		t.Errorf("err = %v, want ErrOpportunityNotFound", err)
	}
}

func TestCreateProposalEmptyTitleFallback(t *testing.T) {
	store := newFakeStore(opportunity(1, "  "))
	svc := newTestService(store, nil, &fakeNotifier{})

	p, err := svc.CreateProposal(1, &models.User{ID: "u1"})
	if err != nil || p == nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Title != "Proposal for this opportunity" {
		t.Errorf("Title = %q", p.Title)
	}
}

func TestCreateProposalDedup(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme Expansion"))
	svc := newTestService(store, nil, &fakeNotifier{})

	first, err := svc.CreateProposal(1, &models.User{ID: "u1"})
	if err != nil || first == nil {
		t.Fatalf("first create failed: %v", err)
	}

	// guard освобождается с задержкой в 1мс; дожидаемся и бьём по окну дублей
	time.Sleep(20 * time.Millisecond)

	second, err := svc.CreateProposal(1, &models.User{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Fatal("duplicate within the window must be dropped")
	}

	list, _ := svc.Proposals(1)
	if len(list) != 1 {
		t.Fatalf("live list has %d proposals, want 1", len(list))
	}
}

func TestApproveStage(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme Expansion"))
	dir := &fakeDirectory{users: []*models.User{
		{ID: "u1", Name: "Ada", Email: "ada@x.com", Status: models.UserActive},
		{ID: "u2", Name: "Grace", Email: "grace@x.com", Status: models.UserActive},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(store, dir, notifier)

	p, _ := svc.CreateProposal(1, &models.User{ID: "u1", Name: "Ada"})

	if err := svc.AssignStage(1, p.ID, 0, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignStage(1, p.ID, 1, "u2"); err != nil {
		t.Fatal(err)
	}

	if err := svc.ApproveStage(1, p.ID, 0, &models.User{ID: "u2", Name: "Grace"}, ""); err != nil {
		t.Fatal(err)
	}

	got, err := svc.ProposalByID(1, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	st := got.Stages[0]
	if st.Status != models.StageApproved {
		t.Errorf("status = %q, want approved", st.Status)
	}
	if st.ApprovedBy != "Grace" || st.ApprovedAt == nil {
		t.Errorf("approval details: by=%q at=%v", st.ApprovedBy, st.ApprovedAt)
	}
	if st.RejectedBy != "" || st.RejectedAt != nil || st.RejectedReason != "" {
		t.Error("rejection fields must be empty on an approved stage")
	}

	// следующий pending-этап продвигается и его исполнитель уведомлён
	if got.Stages[1].Status != models.StageInProgress {
		t.Errorf("next stage status = %q, want in-progress", got.Stages[1].Status)
	}
	var ready int
	for _, n := range notifier.directTo("u2") {
		if n.title == "Proposal Stage Ready: "+got.Title {
			ready++
		}
	}
	if ready != 1 {
		t.Errorf("next assignee got %d ready notifications, want 1", ready)
	}
}

func TestApproveClearsPriorRejection(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1", Name: "Ada"})

	if err := svc.RejectStage(1, p.ID, 0, &models.User{ID: "u1", Name: "Ada"}, "missing data", ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.ApproveStage(1, p.ID, 0, &models.User{ID: "u2", Name: "Grace"}, ""); err != nil {
		t.Fatal(err)
	}

	got, _ := svc.ProposalByID(1, p.ID)
	st := got.Stages[0]
	if st.Status != models.StageApproved {
		t.Fatalf("status = %q", st.Status)
	}
	if st.RejectedBy != "" || st.RejectedAt != nil || st.RejectedReason != "" {
		t.Error("re-approval must clear prior rejection details")
	}
}

func TestRejectStage(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1", Name: "Ada"})

	if err := svc.ApproveStage(1, p.ID, 0, &models.User{ID: "u1", Name: "Ada"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.RejectStage(1, p.ID, 0, &models.User{ID: "u2", Name: "Grace"}, "budget exceeded", ""); err != nil {
		t.Fatal(err)
	}

	got, _ := svc.ProposalByID(1, p.ID)
	st := got.Stages[0]
	if st.Status != models.StageRejected {
		t.Fatalf("status = %q", st.Status)
	}
	// причина сохраняется дословно
	if st.RejectedReason != "budget exceeded" {
		t.Errorf("reason = %q", st.RejectedReason)
	}
	if st.RejectedBy != "Grace" || st.RejectedAt == nil {
		t.Errorf("rejection details: by=%q at=%v", st.RejectedBy, st.RejectedAt)
	}
	if st.ApprovedBy != "" || st.ApprovedAt != nil {
		t.Error("rejection must clear prior approval details")
	}
}

func TestRejectStageEmptyReasonIsNoop(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1"})

	if err := svc.RejectStage(1, p.ID, 0, &models.User{ID: "u1"}, "   ", ""); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.ProposalByID(1, p.ID)
	if got.Stages[0].Status != models.StagePending {
		t.Errorf("status = %q, want untouched pending", got.Stages[0].Status)
	}
}

func TestSetStageStatusTransitionTable(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1"})

	if err := svc.SetStageStatus(1, p.ID, 0, models.StageInProgress); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetStageStatus(1, p.ID, 0, models.StagePending); err == nil {
		t.Error("in-progress -> pending must be rejected")
	}
}

func TestAssignStage(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	dir := &fakeDirectory{users: []*models.User{
		{ID: "u1", Name: "Ada", Email: "ada@x.com", Status: models.UserActive},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(store, dir, notifier)
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1"})

	if err := svc.AssignStage(1, p.ID, 0, "u1"); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.ProposalByID(1, p.ID)
	st := got.Stages[0]
	if st.Assignee != "Ada" || st.AssigneeID != "u1" || st.AssigneeEmail != "ada@x.com" {
		t.Errorf("assignment fields: %+v", st)
	}
	if n := notifier.directTo("u1"); len(n) != 1 {
		t.Errorf("assignee notified %d times, want 1", len(n))
	}

	if err := svc.AssignStage(1, p.ID, 0, "missing"); err == nil {
		t.Error("unknown user id must be an error")
	}

	// пустой id снимает назначение
	if err := svc.AssignStage(1, p.ID, 0, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.ProposalByID(1, p.ID)
	st = got.Stages[0]
	if st.Assignee != "" || st.AssigneeID != "" || st.AssigneeEmail != "" {
		t.Errorf("assignment not cleared: %+v", st)
	}
}

func TestCommentStageNotifiesMentions(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	dir := &fakeDirectory{users: []*models.User{
		{ID: "u1", Name: "Ada", Email: "ada@x.com", Status: models.UserActive},
		{ID: "u2", Name: "Grace Hopper", Email: "grace@x.com", Status: models.UserActive},
	}}
	notifier := &fakeNotifier{}
	svc := newTestService(store, dir, notifier)
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1", Name: "Ada"})

	comment, err := svc.CommentStage(1, p.ID, 0, "please check @Grace Hopper", &models.User{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatal(err)
	}
	if comment == nil || comment.Author != "Ada" || comment.AuthorID != "u1" {
		t.Fatalf("comment = %+v", comment)
	}

	got, _ := svc.ProposalByID(1, p.ID)
	if len(got.Stages[0].Comments) != 1 {
		t.Fatalf("stage has %d comments, want 1", len(got.Stages[0].Comments))
	}

	mentioned := notifier.directTo("u2")
	if len(mentioned) != 1 || mentioned[0].title != "You were mentioned: "+got.Title {
		t.Errorf("mention notifications = %+v", mentioned)
	}
}

func TestCommentStageEmptyText(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1"})

	comment, err := svc.CommentStage(1, p.ID, 0, "   ", &models.User{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if comment != nil {
		t.Error("blank comment must be dropped")
	}
}

func TestRenameEmptyIsNoop(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1"})

	if err := svc.Rename(1, p.ID, "  "); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.ProposalByID(1, p.ID)
	if got.Title != p.Title {
		t.Errorf("title changed to %q on empty rename", got.Title)
	}

	if err := svc.Rename(1, p.ID, "Revised Proposal"); err != nil {
		t.Fatal(err)
	}
	got, _ = svc.ProposalByID(1, p.ID)
	if got.Title != "Revised Proposal" || got.Name != "Revised Proposal" {
		t.Errorf("rename not applied: title=%q name=%q", got.Title, got.Name)
	}
}

func TestDeleteProposal(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1"})

	if err := svc.DeleteProposal(1, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteProposal(1, p.ID); err != ErrProposalNotFound {
		t.Errorf("second delete err = %v, want ErrProposalNotFound", err)
	}
	list, _ := svc.Proposals(1)
	if len(list) != 0 {
		t.Errorf("live list still has %d proposals", len(list))
	}
}

func TestFlushPersistsPendingWrites(t *testing.T) {
	store := newFakeStore(opportunity(1, "Acme"))
	svc := newTestService(store, nil, &fakeNotifier{})
	p, _ := svc.CreateProposal(1, &models.User{ID: "u1"})

	svc.Flush()

	store.mu.Lock()
	persisted := store.opps[1].Proposals
	store.mu.Unlock()
	if len(persisted) != 1 || persisted[0].ID != p.ID {
		t.Errorf("persisted list = %+v", persisted)
	}
}
