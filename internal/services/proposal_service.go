package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"bizdesk/internal/config"
	"bizdesk/internal/mentions"
	"bizdesk/internal/models"
	"bizdesk/internal/utils"
)

// OpportunityStore is what the engine needs from persistence: the initial
// load and the debounced proposal write.
type OpportunityStore interface {
	GetByID(id int) (*models.Opportunity, error)
	UpdateProposals(id int, proposals []models.Proposal) error
}

// Notifier fans a proposal event out to its recipients.
type Notifier interface {
	NotifyAssignees(p *models.Proposal, title, message, link string)
	NotifyUser(userID, title, message, link string)
}

// DirectoryService supplies assignable users; read-only to the engine.
type DirectoryService interface {
	ListActiveUsers() ([]*models.User, error)
	GetUserByID(id string) (*models.User, error)
}

var ErrOpportunityNotFound = errors.New("opportunity not found")
var ErrProposalNotFound = errors.New("proposal not found")
var ErrStageNotFound = errors.New("stage not found")

// ProposalService is the approval workflow engine: proposal creation with
// duplicate suppression, stage transitions, assignment, commenting and the
// resulting notification fan-out. All mutations go through the per-
// opportunity board, so local state is updated synchronously and persisted
// on the board's debounce.
type ProposalService struct {
	store     OpportunityStore
	directory DirectoryService
	notifier  Notifier
	cfg       config.WorkflowConfig
	onMerge   func(oppID int, proposals []models.Proposal)

	mu     sync.Mutex
	boards map[int]*proposalBoard
}

func NewProposalService(store OpportunityStore, directory DirectoryService, notifier Notifier, cfg config.WorkflowConfig) *ProposalService {
	return &ProposalService{
		store:     store,
		directory: directory,
		notifier:  notifier,
		cfg:       cfg,
		boards:    map[int]*proposalBoard{},
	}
}

// SetMergeHook wires the realtime hub; called once at startup, before the
// engine serves requests.
func (s *ProposalService) SetMergeHook(hook func(oppID int, proposals []models.Proposal)) {
	s.onMerge = hook
}

// board returns the opportunity's board, loading the persisted record the
// first time it is touched.
func (s *ProposalService) board(oppID int) (*proposalBoard, *models.Opportunity, error) {
	s.mu.Lock()
	b, ok := s.boards[oppID]
	s.mu.Unlock()
	if ok {
		return b, nil, nil
	}

	opp, err := s.store.GetByID(oppID)
	if err != nil {
		return nil, nil, err
	}
	if opp == nil {
		return nil, nil, ErrOpportunityNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.boards[oppID]; ok { // проиграли гонку загрузки
		return b, opp, nil
	}
	b = newProposalBoard(oppID, opp.Proposals, s.store, s.cfg.Debounce(), func(id int, ps []models.Proposal) {
		if s.onMerge != nil {
			s.onMerge(id, ps)
		}
	})
	s.boards[oppID] = b
	return b, opp, nil
}

// Proposals returns the live proposal list for an opportunity.
func (s *ProposalService) Proposals(oppID int) ([]models.Proposal, error) {
	b, _, err := s.board(oppID)
	if err != nil {
		return nil, err
	}
	return b.Live(), nil
}

// Flush forces pending writes for all boards (shutdown path).
func (s *ProposalService) Flush() {
	s.mu.Lock()
	boards := make([]*proposalBoard, 0, len(s.boards))
	for _, b := range s.boards {
		boards = append(boards, b)
	}
	s.mu.Unlock()
	for _, b := range boards {
		b.Flush()
	}
}

// ===== Создание с защитой от дублей =====

// CreateProposal creates a proposal for the opportunity. Returns (nil,
// nil) when the request is dropped as a duplicate: a create already in
// flight, an id collision, or a near-simultaneous create that derived the
// same title.
func (s *ProposalService) CreateProposal(oppID int, actor *models.User) (*models.Proposal, error) {
	b, opp, err := s.board(oppID)
	if err != nil {
		return nil, err
	}

	if !b.tryBeginCreate() {
		log.Printf("[proposal] opp=%d: создание уже в процессе, запрос отброшен", oppID)
		return nil, nil
	}

	if opp == nil {
		if opp, err = s.store.GetByID(oppID); err != nil {
			b.releaseCreate(0)
			return nil, err
		}
		if opp == nil {
			b.releaseCreate(0)
			return nil, ErrOpportunityNotFound
		}
	}

	contextTitle := strings.TrimSpace(opp.Title)
	if contextTitle == "" {
		contextTitle = "this opportunity"
	}
	now := time.Now()
	proposal := models.NewProposal(contextTitle, now, utils.NewIDSuffix(9))

	existing := b.SnapshotUnion()

	for _, p := range existing {
		if p.ID == proposal.ID {
			log.Printf("[proposal] opp=%d: proposal с id=%s уже существует, пропускаем", oppID, p.ID)
			b.releaseCreate(0)
			return nil, nil
		}
	}
	for _, p := range existing {
		created, ok := models.ProposalIDTime(p.ID)
		if !ok {
			continue
		}
		if absDuration(now.Sub(created)) < s.cfg.DedupWindow() && proposalTitle(p) == proposal.Title {
			log.Printf("[proposal] opp=%d: свежий proposal с тем же title (%s), пропускаем", oppID, p.ID)
			b.releaseCreate(0)
			return nil, nil
		}
	}

	b.Apply(append(existing, proposal))

	s.notifier.NotifyAssignees(
		&proposal,
		"New Proposal Created: "+proposal.Title,
		fmt.Sprintf("A new proposal %q has been created for %s.", proposal.Title, contextTitle),
		s.proposalLink(oppID),
	)

	b.releaseCreate(s.cfg.CreateGuardRelease())
	return &proposal, nil
}

// ===== Этапы =====

// ApproveStage marks the stage approved, an idempotent overwrite from any
// status. Prior rejection details are cleared; the next pending stage is
// promoted to in-progress and its assignee is told the stage is ready.
// An optional comment is appended before the transition.
func (s *ProposalService) ApproveStage(oppID int, proposalID string, stageIdx int, actor *models.User, comment string) error {
	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}

	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return err
	}
	if stageIdx < 0 || stageIdx >= len(proposal.Stages) {
		return ErrStageNotFound
	}

	if text := strings.TrimSpace(comment); text != "" {
		s.appendComment(&proposal.Stages[stageIdx], text, actor)
		s.notifyMentions(text, proposal.Title, s.proposalLink(oppID))
	}

	now := time.Now()
	st := &proposal.Stages[stageIdx]
	st.Status = models.StageApproved
	st.ApprovedBy = actor.DisplayName()
	st.ApprovedAt = &now
	st.RejectedBy = ""
	st.RejectedAt = nil
	st.RejectedReason = ""

	var nextAssignee string
	var nextName string
	if next := stageIdx + 1; next < len(proposal.Stages) && canStart(proposal.Stages[next].Status) {
		proposal.Stages[next].Status = models.StageInProgress
		nextAssignee = proposal.Stages[next].AssigneeID
		nextName = proposal.Stages[next].Name
	}

	b.Apply([]models.Proposal{*proposal})

	message := fmt.Sprintf("Stage %q has been approved by %s.", st.Name, st.ApprovedBy)
	if text := strings.TrimSpace(comment); text != "" {
		message += " Comment: " + text
	}
	s.notifier.NotifyAssignees(proposal, "Proposal Stage Approved: "+proposal.Title, message, s.proposalLink(oppID))

	if nextAssignee != "" {
		s.notifier.NotifyUser(
			nextAssignee,
			"Proposal Stage Ready: "+proposal.Title,
			fmt.Sprintf("Stage %q is now ready for your review.", nextName),
			s.proposalLink(oppID),
		)
	}
	return nil
}

// RejectStage marks the stage rejected. An empty reason is a silent no-op
// (the action is simply not performed); prior approval details are
// cleared otherwise.
func (s *ProposalService) RejectStage(oppID int, proposalID string, stageIdx int, actor *models.User, reason, comment string) error {
	// причина хранится как есть; trim только для проверки на пустоту
	if strings.TrimSpace(reason) == "" {
		log.Printf("[proposal] opp=%d: reject без причины, изменение не применено", oppID)
		return nil
	}

	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}

	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return err
	}
	if stageIdx < 0 || stageIdx >= len(proposal.Stages) {
		return ErrStageNotFound
	}

	if text := strings.TrimSpace(comment); text != "" {
		s.appendComment(&proposal.Stages[stageIdx], text, actor)
		s.notifyMentions(text, proposal.Title, s.proposalLink(oppID))
	}

	now := time.Now()
	st := &proposal.Stages[stageIdx]
	st.Status = models.StageRejected
	st.RejectedBy = actor.DisplayName()
	st.RejectedAt = &now
	st.RejectedReason = reason
	st.ApprovedBy = ""
	st.ApprovedAt = nil

	b.Apply([]models.Proposal{*proposal})

	message := fmt.Sprintf("Stage %q has been rejected by %s. Reason: %s", st.Name, st.RejectedBy, reason)
	if text := strings.TrimSpace(comment); text != "" {
		message += " Additional comment: " + text
	}
	s.notifier.NotifyAssignees(proposal, "Proposal Stage Rejected: "+proposal.Title, message, s.proposalLink(oppID))
	return nil
}

// SetStageStatus sets the status directly, honouring the nominal
// transition table. Approve/Reject with their bookkeeping live in the
// dedicated methods; this is the escape hatch for pending/in-progress.
func (s *ProposalService) SetStageStatus(oppID int, proposalID string, stageIdx int, to models.StageStatus) error {
	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}
	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return err
	}
	if stageIdx < 0 || stageIdx >= len(proposal.Stages) {
		return ErrStageNotFound
	}
	if !canTransition(proposal.Stages[stageIdx].Status, to) {
		return errors.New("invalid status transition")
	}
	proposal.Stages[stageIdx].Status = to
	b.Apply([]models.Proposal{*proposal})
	return nil
}

// AssignStage sets the stage assignee from the directory; an empty user
// id clears the assignment. Always permitted regardless of stage status.
func (s *ProposalService) AssignStage(oppID int, proposalID string, stageIdx int, userID string) error {
	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}
	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return err
	}
	if stageIdx < 0 || stageIdx >= len(proposal.Stages) {
		return ErrStageNotFound
	}

	st := &proposal.Stages[stageIdx]
	if userID == "" {
		st.Assignee = ""
		st.AssigneeID = ""
		st.AssigneeEmail = ""
		b.Apply([]models.Proposal{*proposal})
		return nil
	}

	user, err := s.directory.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}
	st.Assignee = user.DisplayName()
	st.AssigneeID = user.ID
	st.AssigneeEmail = user.Email
	b.Apply([]models.Proposal{*proposal})

	s.notifier.NotifyUser(
		user.ID,
		"Proposal Stage Assigned: "+proposal.Title,
		fmt.Sprintf("You have been assigned to stage %q.", st.Name),
		s.proposalLink(oppID),
	)
	return nil
}

// CommentStage appends a comment to the stage; permitted regardless of
// stage status. Mentioned users are notified.
func (s *ProposalService) CommentStage(oppID int, proposalID string, stageIdx int, text string, actor *models.User) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	b, _, err := s.board(oppID)
	if err != nil {
		return nil, err
	}
	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return nil, err
	}
	if stageIdx < 0 || stageIdx >= len(proposal.Stages) {
		return nil, ErrStageNotFound
	}

	comment := s.appendComment(&proposal.Stages[stageIdx], text, actor)
	b.Apply([]models.Proposal{*proposal})

	s.notifyMentions(text, proposal.Title, s.proposalLink(oppID))
	return comment, nil
}

// ===== Метаданные proposal =====

// Rename sets the proposal title; an empty name is a silent no-op.
func (s *ProposalService) Rename(oppID int, proposalID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		log.Printf("[proposal] opp=%d: пустое имя, переименование не применено", oppID)
		return nil
	}
	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}
	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return err
	}
	proposal.Title = name
	proposal.Name = name
	b.Apply([]models.Proposal{*proposal})
	return nil
}

func (s *ProposalService) SetWorkingDocumentLink(oppID int, proposalID, link string) error {
	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}
	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return err
	}
	proposal.WorkingDocumentLink = strings.TrimSpace(link)
	b.Apply([]models.Proposal{*proposal})
	return nil
}

func (s *ProposalService) SetPricing(oppID int, proposalID string, pricing models.Pricing) error {
	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}
	proposal, err := findProposal(b, proposalID)
	if err != nil {
		return err
	}
	proposal.Pricing = pricing
	b.Apply([]models.Proposal{*proposal})
	return nil
}

func (s *ProposalService) DeleteProposal(oppID int, proposalID string) error {
	b, _, err := s.board(oppID)
	if err != nil {
		return err
	}
	if !b.Remove(proposalID) {
		return ErrProposalNotFound
	}
	return nil
}

func (s *ProposalService) ProposalByID(oppID int, proposalID string) (*models.Proposal, error) {
	b, _, err := s.board(oppID)
	if err != nil {
		return nil, err
	}
	return findProposal(b, proposalID)
}

// ===== Внутреннее =====

func (s *ProposalService) appendComment(st *models.Stage, text string, actor *models.User) *models.Comment {
	comment := models.Comment{
		ID:        fmt.Sprintf("comment-%d-%s", time.Now().UnixMilli(), utils.NewIDSuffix(6)),
		Text:      text,
		Author:    actor.DisplayName(),
		AuthorID:  actor.ID,
		Timestamp: time.Now(),
	}
	st.Comments = append(st.Comments, comment)
	return &comment
}

// notifyMentions resolves @-tokens in comment text against the directory
// and notifies each mentioned user once. Directory failure only skips
// mention delivery.
func (s *ProposalService) notifyMentions(text, proposalTitle, link string) {
	if !strings.Contains(text, "@") {
		return
	}
	users, err := s.directory.ListActiveUsers()
	if err != nil {
		log.Printf("[proposal] справочник недоступен, упоминания не разосланы: %v", err)
		return
	}
	for _, u := range mentions.Extract(text, users) {
		s.notifier.NotifyUser(
			u.ID,
			"You were mentioned: "+proposalTitle,
			fmt.Sprintf("You were mentioned in a comment on %q.", proposalTitle),
			link,
		)
	}
}

func (s *ProposalService) proposalLink(oppID int) string {
	base := s.cfg.LinkBase
	if base == "" {
		base = "#/clients"
	}
	return fmt.Sprintf("%s?opportunity=%d&tab=proposals", base, oppID)
}

func findProposal(b *proposalBoard, proposalID string) (*models.Proposal, error) {
	for _, p := range b.Live() {
		if p.ID == proposalID {
			clone := cloneProposal(p)
			return &clone, nil
		}
	}
	return nil, ErrProposalNotFound
}

func proposalTitle(p models.Proposal) string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
