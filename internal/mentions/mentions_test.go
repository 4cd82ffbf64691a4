package mentions

import (
	"testing"

	"bizdesk/internal/models"
)

func activeUser(id, name, email string) *models.User {
	return &models.User{ID: id, Name: name, Email: email, Status: models.UserActive}
}

func TestActiveQuery(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		caret     int
		wantQuery string
		wantStart int
		wantOK    bool
	}{
		{"caret inside token", "ping @jo", 8, "jo", 5, true},
		{"bare at", "ping @", 6, "", 5, true},
		{"space closes token", "ping @jo task", 13, "", 0, false},
		{"no at sign", "ping jo", 7, "", 0, false},
		{"newline closes token", "ping @jo\nmore", 13, "", 0, false},
		{"caret before at", "ping @jo", 4, "", 0, false},
		{"uppercase lowered", "hi @JO", 6, "jo", 3, true},
		{"second at wins", "a @x b @y", 9, "y", 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, start, ok := ActiveQuery(tt.text, tt.caret)
			if ok != tt.wantOK {
				t.Fatalf("ActiveQuery(%q, %d) ok = %v, want %v", tt.text, tt.caret, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if query != tt.wantQuery || start != tt.wantStart {
				t.Errorf("ActiveQuery(%q, %d) = (%q, %d), want (%q, %d)",
					tt.text, tt.caret, query, start, tt.wantQuery, tt.wantStart)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	users := []*models.User{
		activeUser("1", "John Smith", "john@x.com"),
		activeUser("2", "Joanna Doe", "jo@x.com"),
		{ID: "3", Name: "Jordan Inactive", Email: "jordan@x.com", Status: models.UserInactive},
		activeUser("4", "Mary", "mary@x.com"),
	}

	got := Suggest(users, "jo")
	if len(got) != 2 {
		t.Fatalf("Suggest returned %d users, want 2", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("Suggest order = [%s %s], want [1 2]", got[0].ID, got[1].ID)
	}

	// matches on email too
	if got := Suggest(users, "mary@"); len(got) != 1 || got[0].ID != "4" {
		t.Errorf("Suggest by email failed: %v", got)
	}
}

func TestSuggestCap(t *testing.T) {
	var users []*models.User
	for i := 0; i < 10; i++ {
		users = append(users, activeUser(string(rune('a'+i)), "Common Name", "common@x.com"))
	}
	if got := Suggest(users, "common"); len(got) != MaxSuggestions {
		t.Errorf("Suggest returned %d users, want %d", len(got), MaxSuggestions)
	}
}

func TestInsert(t *testing.T) {
	text, caret := Insert("ping @jo please", 8, 5, "Joanna Doe")
	want := "ping @Joanna Doe  please"
	if text != want {
		t.Errorf("Insert text = %q, want %q", text, want)
	}
	wantCaret := 5 + len("@Joanna Doe ")
	if caret != wantCaret {
		t.Errorf("Insert caret = %d, want %d", caret, wantCaret)
	}
}

func TestInsertInvalidSpan(t *testing.T) {
	text, caret := Insert("abc", 1, 2, "X")
	if text != "abc" || caret != 1 {
		t.Errorf("Insert with start > caret must be a no-op, got (%q, %d)", text, caret)
	}
}

func TestExtract(t *testing.T) {
	jane := activeUser("1", "Jane Doe", "jane@x.com")
	bob := activeUser("2", "Bob", "bob@x.com")
	inactive := &models.User{ID: "3", Name: "Gone", Email: "gone@x.com", Status: models.UserInactive}
	users := []*models.User{jane, bob, inactive}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"two word name", "please review @Jane Doe thanks", []string{"1"}},
		{"single word name", "ping @Bob now", []string{"2"}},
		{"by email", "cc @jane@x.com here", []string{"1"}},
		{"trailing punctuation", "thanks @Bob!", []string{"2"}},
		{"token at end of text", "over to @Bob", []string{"2"}},
		{"unknown token skipped", "hello @Nobody", nil},
		{"inactive user skipped", "hello @Gone", nil},
		{"deduplicated", "@Bob and again @Bob", []string{"2"}},
		{"multiple users", "@Jane Doe and @Bob", []string{"1", "2"}},
		{"no mentions", "plain text", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text, users)
			if len(got) != len(tt.want) {
				t.Fatalf("Extract(%q) returned %d users, want %d", tt.text, len(got), len(tt.want))
			}
			for i, u := range got {
				if u.ID != tt.want[i] {
					t.Errorf("Extract(%q)[%d] = %s, want %s", tt.text, i, u.ID, tt.want[i])
				}
			}
		})
	}
}
