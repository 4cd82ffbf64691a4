package models

import (
	"testing"
	"time"
)

func TestNewProposal(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	p := NewProposal("Acme Expansion", now, "abc123xyz")

	if p.Title != "Proposal for Acme Expansion" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Name != p.Title {
		t.Errorf("Name = %q, want duplicate of title", p.Name)
	}
	if p.CreatedDate != "2025-03-10" {
		t.Errorf("CreatedDate = %q", p.CreatedDate)
	}
	if len(p.Stages) != 9 {
		t.Fatalf("len(Stages) = %d, want 9", len(p.Stages))
	}
	for i, st := range p.Stages {
		if st.Status != StagePending {
			t.Errorf("stage %d status = %q, want pending", i, st.Status)
		}
		if st.Assignee != "" || st.AssigneeID != "" {
			t.Errorf("stage %d has an assignee at creation", i)
		}
		if st.Comments == nil {
			t.Errorf("stage %d comments not initialised", i)
		}
	}
	if p.Stages[0].Name != "Create Site Inspection Document" {
		t.Errorf("first stage = %q", p.Stages[0].Name)
	}
	if p.Stages[8].Department != "CEO" {
		t.Errorf("last stage department = %q", p.Stages[8].Department)
	}
}

func TestProposalIDTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	id := NewProposalID(now, "suffix")

	got, ok := ProposalIDTime(id)
	if !ok {
		t.Fatalf("ProposalIDTime(%q) not ok", id)
	}
	if !got.Equal(now) {
		t.Errorf("ProposalIDTime = %v, want %v", got, now)
	}

	for _, bad := range []string{"", "proposal", "proposal-abc-def"} {
		if _, ok := ProposalIDTime(bad); ok {
			t.Errorf("ProposalIDTime(%q) unexpectedly ok", bad)
		}
	}
}

func TestParseProposals(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		got, err := ParseProposals([]byte(`[{"id":"proposal-1-a","title":"T"}]`))
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "proposal-1-a" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("string wrapped array", func(t *testing.T) {
		// старые строки хранили список как JSON-строку
		got, err := ParseProposals([]byte(`"[{\"id\":\"proposal-2-b\"}]"`))
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "proposal-2-b" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("empty forms", func(t *testing.T) {
		for _, raw := range []string{"", "null", `""`, "  "} {
			got, err := ParseProposals([]byte(raw))
			if err != nil {
				t.Fatalf("ParseProposals(%q): %v", raw, err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("ParseProposals(%q) = %v, want empty non-nil", raw, got)
			}
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ParseProposals([]byte("{broken")); err == nil {
			t.Error("expected an error for malformed payload")
		}
	})
}
