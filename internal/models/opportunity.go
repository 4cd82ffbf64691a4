package models

import "time"

// LifecycleStatus is the commercial state of an opportunity.
type LifecycleStatus string

const (
	LifecyclePotential     LifecycleStatus = "Potential"
	LifecycleActive        LifecycleStatus = "Active"
	LifecycleProposal      LifecycleStatus = "Proposal"
	LifecycleDisinterested LifecycleStatus = "Disinterested"
)

// FunnelStage is the AIDA marketing-funnel position.
type FunnelStage string

const (
	FunnelAwareness FunnelStage = "Awareness"
	FunnelInterest  FunnelStage = "Interest"
	FunnelDesire    FunnelStage = "Desire"
	FunnelAction    FunnelStage = "Action"
)

type Opportunity struct {
	ID        int             `json:"id"`
	ClientID  int             `json:"client_id"`
	Title     string          `json:"title"`
	Status    LifecycleStatus `json:"status"`
	Stage     FunnelStage     `json:"stage"`
	Value     float64         `json:"value"`
	Proposals []Proposal      `json:"proposals"`
	CreatedAt time.Time       `json:"created_at"`
}

// NormalizeLifecycle maps legacy lower-case values onto the canonical set.
func NormalizeLifecycle(v string) LifecycleStatus {
	switch v {
	case "active", "Active":
		return LifecycleActive
	case "proposal", "Proposal":
		return LifecycleProposal
	case "disinterested", "Disinterested":
		return LifecycleDisinterested
	default:
		return LifecyclePotential
	}
}
