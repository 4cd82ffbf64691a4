package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StageStatus defines the approval state of a single proposal stage.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in-progress"
	StageApproved   StageStatus = "approved"
	StageRejected   StageStatus = "rejected"
)

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	AuthorID  string    `json:"authorId"`
	Timestamp time.Time `json:"timestamp"`
}

// Stage is one department's gate in the approval sequence.
// Exactly one of the approved/rejected field groups is populated once the
// status leaves pending.
type Stage struct {
	Name          string      `json:"name"`
	Department    string      `json:"department"`
	Assignee      string      `json:"assignee"`
	AssigneeID    string      `json:"assigneeId"`
	AssigneeEmail string      `json:"assigneeEmail"`
	Status        StageStatus `json:"status"`
	Comments      []Comment   `json:"comments"`

	ApprovedBy string     `json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`

	RejectedBy     string     `json:"rejectedBy,omitempty"`
	RejectedAt     *time.Time `json:"rejectedAt,omitempty"`
	RejectedReason string     `json:"rejectedReason,omitempty"`
}

type Pricing struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

type Proposal struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Name                string  `json:"name"` // дубль title, так исторически хранится
	CreatedDate         string  `json:"createdDate"`
	WorkingDocumentLink string  `json:"workingDocumentLink"`
	Stages              []Stage `json:"stages"`
	Pricing             Pricing `json:"pricing"`
}

// DefaultStages returns the fixed ordered set every new proposal starts
// with. The set never changes after creation; stages are only mutated in
// place.
func DefaultStages() []Stage {
	names := []struct {
		name, department string
	}{
		{"Create Site Inspection Document", "Business Development"},
		{"Conduct site visit input data to Site Inspection Document", "Technical"},
		{"Comments on work loading requirements", "Data"},
		{"Comments on time allocations", "Support"},
		{"Relevant comments time allocations", "Compliance"},
		{"Creates proposal from template add client information", "Business Development"},
		{"Reviews proposal against Site Inspection comments", "Operations Manager"},
		{"Price proposal", "Commercial"},
		{"Final Approval", "CEO"},
	}
	stages := make([]Stage, 0, len(names))
	for _, n := range names {
		stages = append(stages, Stage{
			Name:       n.name,
			Department: n.department,
			Status:     StagePending,
			Comments:   []Comment{},
		})
	}
	return stages
}

// NewProposal builds a proposal for the given context title with the fixed
// stage set and an id that embeds the creation instant.
func NewProposal(contextTitle string, now time.Time, idSuffix string) Proposal {
	title := "Proposal for " + contextTitle
	return Proposal{
		ID:          NewProposalID(now, idSuffix),
		Title:       title,
		Name:        title,
		CreatedDate: now.Format("2006-01-02"),
		Stages:      DefaultStages(),
		Pricing:     Pricing{},
	}
}

// NewProposalID: "proposal-<unix-ms>-<suffix>". The millisecond component
// is what the creation deduplicator inspects.
func NewProposalID(now time.Time, suffix string) string {
	return fmt.Sprintf("proposal-%d-%s", now.UnixMilli(), suffix)
}

// ProposalIDTime extracts the creation instant embedded in a proposal id.
func ProposalIDTime(id string) (time.Time, bool) {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// ParseProposals decodes a persisted proposal list. Older rows stored the
// list as a JSON string rather than a JSON array; both forms are accepted.
func ParseProposals(raw []byte) ([]Proposal, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []Proposal{}, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return nil, fmt.Errorf("разбор proposals (строка): %w", err)
		}
		trimmed = strings.TrimSpace(inner)
		if trimmed == "" {
			return []Proposal{}, nil
		}
	}
	var proposals []Proposal
	if err := json.Unmarshal([]byte(trimmed), &proposals); err != nil {
		return nil, fmt.Errorf("разбор proposals: %w", err)
	}
	if proposals == nil {
		proposals = []Proposal{}
	}
	return proposals, nil
}
