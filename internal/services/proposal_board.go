package services

import (
	"log"
	"sync"
	"time"

	"bizdesk/internal/models"
)

// ProposalPersister is the narrow slice of the opportunity repository the
// board needs for its debounced write.
type ProposalPersister interface {
	UpdateProposals(id int, proposals []models.Proposal) error
}

// proposalBoard reconciles the proposal list of one opportunity. The list
// exists in three references: the live snapshot (what callers see), the
// last successfully persisted snapshot, and the snapshot from the initial
// load. Local mutations merge into the live snapshot synchronously; the
// write to the database is debounced so a burst of edits produces one
// network write of the final state.
//
// В оригинале роль мьютекса играли boolean-флаги при кооперативной
// однопоточности; здесь настоящая многопоточность, поэтому mu.
type proposalBoard struct {
	oppID    int
	persist  ProposalPersister
	debounce time.Duration
	onMerge  func(oppID int, proposals []models.Proposal)

	mu        sync.Mutex
	live      []models.Proposal
	lastSaved []models.Proposal
	loaded    []models.Proposal
	timer     *time.Timer
	saving    bool // advisory: запись в полёте, мутации не блокирует
	creating  bool // guard создания proposal
}

func newProposalBoard(oppID int, initial []models.Proposal, persist ProposalPersister, debounce time.Duration, onMerge func(int, []models.Proposal)) *proposalBoard {
	return &proposalBoard{
		oppID:     oppID,
		persist:   persist,
		debounce:  debounce,
		onMerge:   onMerge,
		live:      cloneProposals(initial),
		lastSaved: cloneProposals(initial),
		loaded:    cloneProposals(initial),
	}
}

// Apply merges updated proposals into the live snapshot by id (updates
// replace, new ids append, existing order preserved), makes the merged
// list visible immediately and schedules a debounced persist. Returns the
// merged list.
func (b *proposalBoard) Apply(updated []models.Proposal) []models.Proposal {
	b.mu.Lock()
	merged := make([]models.Proposal, 0, len(b.live)+len(updated))
	index := make(map[string]int, len(b.live))
	for _, p := range b.live {
		if p.ID == "" {
			continue
		}
		if _, dup := index[p.ID]; dup {
			continue
		}
		index[p.ID] = len(merged)
		merged = append(merged, p)
	}
	for _, p := range updated {
		if p.ID == "" {
			continue
		}
		if i, ok := index[p.ID]; ok {
			merged[i] = p
		} else {
			index[p.ID] = len(merged)
			merged = append(merged, p)
		}
	}
	b.live = merged
	b.scheduleLocked()
	snapshot := cloneProposals(merged)
	b.mu.Unlock()

	if b.onMerge != nil {
		b.onMerge(b.oppID, snapshot)
	}
	return snapshot
}

// Remove drops a proposal from every snapshot so the id-union cannot
// resurrect it, then schedules a persist.
func (b *proposalBoard) Remove(proposalID string) bool {
	b.mu.Lock()
	before := len(b.live)
	b.live = withoutProposal(b.live, proposalID)
	b.lastSaved = withoutProposal(b.lastSaved, proposalID)
	b.loaded = withoutProposal(b.loaded, proposalID)
	removed := len(b.live) < before
	if removed {
		b.scheduleLocked()
	}
	snapshot := cloneProposals(b.live)
	b.mu.Unlock()

	if removed && b.onMerge != nil {
		b.onMerge(b.oppID, snapshot)
	}
	return removed
}

// Live returns a copy of the current live snapshot.
func (b *proposalBoard) Live() []models.Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneProposals(b.live)
}

// SnapshotUnion unions every known reference to the list, de-duplicated
// by id (live wins, then last-saved, then the initial load). Used by the
// creation deduplicator.
func (b *proposalBoard) SnapshotUnion() []models.Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()
	union := make([]models.Proposal, 0, len(b.live))
	seen := map[string]bool{}
	for _, src := range [][]models.Proposal{b.live, b.lastSaved, b.loaded} {
		for _, p := range src {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			union = append(union, p)
		}
	}
	return cloneProposals(union)
}

// scheduleLocked (re)arms the trailing-edge debounce timer; an already
// scheduled, not-yet-fired write is cancelled.
func (b *proposalBoard) scheduleLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, b.flush)
}

// flush persists the latest live snapshot. Failure is non-fatal: the next
// mutation reschedules a write of the newest state.
func (b *proposalBoard) flush() {
	b.mu.Lock()
	snapshot := cloneProposals(b.live)
	b.saving = true
	b.mu.Unlock()

	err := b.persist.UpdateProposals(b.oppID, snapshot)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.saving = false
	if err != nil {
		log.Printf("[board] opp=%d: сохранение proposals не удалось: %v", b.oppID, err)
		return
	}
	b.lastSaved = snapshot
}

// Flush forces a pending write immediately (used on shutdown).
func (b *proposalBoard) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()
	b.flush()
}

// Saving reports whether a persist is in flight. Advisory only.
func (b *proposalBoard) Saving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saving
}

// tryBeginCreate flips the creation guard; false means a create is
// already in flight and the request must be dropped.
func (b *proposalBoard) tryBeginCreate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.creating {
		return false
	}
	b.creating = true
	return true
}

// releaseCreate clears the guard, after a grace delay when requested, so
// an immediately-following duplicate trigger is still absorbed.
func (b *proposalBoard) releaseCreate(after time.Duration) {
	release := func() {
		b.mu.Lock()
		b.creating = false
		b.mu.Unlock()
	}
	if after > 0 {
		time.AfterFunc(after, release)
		return
	}
	release()
}

func withoutProposal(list []models.Proposal, id string) []models.Proposal {
	out := list[:0]
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// cloneProposals makes a deep copy so callers never alias the board's
// internal snapshots.
func cloneProposals(list []models.Proposal) []models.Proposal {
	out := make([]models.Proposal, len(list))
	for i, p := range list {
		out[i] = cloneProposal(p)
	}
	return out
}

func cloneProposal(p models.Proposal) models.Proposal {
	stages := make([]models.Stage, len(p.Stages))
	for i, s := range p.Stages {
		comments := make([]models.Comment, len(s.Comments))
		copy(comments, s.Comments)
		s.Comments = comments
		if s.ApprovedAt != nil {
			t := *s.ApprovedAt
			s.ApprovedAt = &t
		}
		if s.RejectedAt != nil {
			t := *s.RejectedAt
			s.RejectedAt = &t
		}
		stages[i] = s
	}
	p.Stages = stages
	return p
}
