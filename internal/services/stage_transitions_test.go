package services

import (
	"testing"

	"bizdesk/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		current models.StageStatus
		to      models.StageStatus
		want    bool
	}{
		{models.StagePending, models.StageInProgress, true},
		{models.StagePending, models.StageApproved, true},
		{models.StagePending, models.StageRejected, true},
		{models.StageInProgress, models.StageApproved, true},
		{models.StageInProgress, models.StageRejected, true},
		{models.StageInProgress, models.StagePending, false},
		{models.StageApproved, models.StageRejected, true},
		{models.StageApproved, models.StageInProgress, false},
		{models.StageRejected, models.StageApproved, true},
		{models.StageRejected, models.StageInProgress, false},
		// пустой статус читается как pending
		{"", models.StageInProgress, true},
		{"bogus", models.StageApproved, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.current, tt.to); got != tt.want {
			t.Errorf("canTransition(%q, %q) = %v, want %v", tt.current, tt.to, got, tt.want)
		}
	}
}

func TestCanStart(t *testing.T) {
	if !canStart("") || !canStart(models.StagePending) {
		t.Error("empty and pending stages must be startable")
	}
	for _, s := range []models.StageStatus{models.StageInProgress, models.StageApproved, models.StageRejected} {
		if canStart(s) {
			t.Errorf("canStart(%q) = true, want false", s)
		}
	}
}
