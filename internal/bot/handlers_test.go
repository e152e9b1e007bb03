package bot

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fhunt_bot/internal/model"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantCmd string
		wantArg string
		wantOK  bool
	}{
		{name: "bare", text: "/status", wantCmd: "status", wantOK: true},
		{name: "with argument", text: "/budget 1000", wantCmd: "budget", wantArg: "1000", wantOK: true},
		{name: "bot suffix", text: "/AddKw@fhunt_bot  Go Lang ", wantCmd: "addkw", wantArg: "Go Lang", wantOK: true},
		{name: "plain text", text: "hello", wantOK: false},
		{name: "slash only", text: "/", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, arg, ok := ParseCommand(tt.text)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ok mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCmd, cmd); diff != "" {
				t.Errorf("cmd mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantArg, arg); diff != "" {
				t.Errorf("arg mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "integer", input: "1000", want: 1000},
		{name: "fraction truncated", input: "1500.9", want: 1500},
		{name: "zero clears", input: "0", want: 0},
		{name: "negative clears", input: "-5", want: 0},
		{name: "whitespace", input: " 250 ", want: 250},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "nan", input: "NaN", wantErr: true},
		{name: "too large", input: "1e20", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBudget(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDigestTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "valid", input: "09:00", want: "09:00"},
		{name: "single digit hour", input: "9:30", want: "09:30"},
		{name: "end of day", input: "23:59", want: "23:59"},
		{name: "disable", input: "0", want: ""},
		{name: "hour out of range", input: "25:00", wantErr: true},
		{name: "minute out of range", input: "12:60", wantErr: true},
		{name: "garbage", input: "noon", wantErr: true},
		{name: "seconds", input: "09:00:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDigestTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseReminder(t *testing.T) {
	tests := []struct {
		name      string
		arg       string
		wantHours int
		wantID    model.EntityID
		wantErr   bool
	}{
		{name: "one hour", arg: "1:123", wantHours: 1, wantID: "123"},
		{name: "three hours", arg: "3:abc", wantHours: 3, wantID: "abc"},
		{name: "missing id", arg: "3:", wantErr: true},
		{name: "no separator", arg: "3", wantErr: true},
		{name: "zero hours", arg: "0:1", wantErr: true},
		{name: "not a number", arg: "x:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, id, err := ParseReminder(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantHours, hours); diff != "" {
				t.Errorf("hours (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantID, id); diff != "" {
				t.Errorf("id (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data       string
		wantAction string
		wantArg    string
	}{
		{data: "status", wantAction: "status"},
		{data: "bm_add:42", wantAction: "bm_add", wantArg: "42"},
		{data: "remind:3:42", wantAction: "remind", wantArg: "3:42"},
		{data: "kw_del:c++", wantAction: "kw_del", wantArg: "c++"},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, arg := ParseCallback(tt.data)
			if diff := cmp.Diff(tt.wantAction, action); diff != "" {
				t.Errorf("action (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantArg, arg); diff != "" {
				t.Errorf("arg (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		keywords []string
		want     string
	}{
		{name: "no keywords", title: "Go <dev>", want: "Go &lt;dev&gt;"},
		{name: "case-insensitive", title: "Python developer needed", keywords: []string{"python"}, want: "<b>Python</b> developer needed"},
		{name: "first matching keyword wins", title: "Django and Python", keywords: []string{"python", "django"}, want: "Django and <b>Python</b>"},
		{name: "cyrillic", title: "Розробка Telegram бота", keywords: []string{"бота"}, want: "Розробка Telegram <b>бота</b>"},
		{name: "escaped around match", title: "A&B go", keywords: []string{"go"}, want: "A&amp;B <b>go</b>"},
		{name: "no match", title: "Java backend", keywords: []string{"python"}, want: "Java backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, highlight(tt.title, tt.keywords)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStars(t *testing.T) {
	tests := []struct {
		rating float64
		want   string
	}{
		{rating: 0, want: ""},
		{rating: 9, want: ""},
		{rating: 10, want: "★"},
		{rating: 61, want: "★★★"},
		{rating: 100, want: "★★★★★"},
		{rating: 450, want: "★★★★★"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, stars(tt.rating)); diff != "" {
			t.Errorf("stars(%v) mismatch (-want +got):\n%s", tt.rating, diff)
		}
	}
}

func TestFormatProject(t *testing.T) {
	p := model.Project{
		ID:              "42",
		Name:            "Python bot",
		Description:     strings.Repeat("x", 300),
		Budget:          1500,
		Currency:        "UAH",
		Skills:          []string{"Python", "Telegram"},
		EmployerLogin:   "acme",
		EmployerRating:  80,
		EmployerReviews: 7,
		IsSafe:          true,
		URL:             "https://freelancehunt.com/project/python-bot/42.html",
	}

	m := FormatProject(p, []string{"python"})
	for _, want := range []string{
		"<b>Project #42</b>",
		"<b>Python</b> bot",
		strings.Repeat("x", 280) + "...",
		"Budget: <b>1500 UAH</b>",
		"Skills: Python, Telegram",
		"Employer: acme ★★★★ (7 reviews)",
		"Safe deal",
	} {
		if !strings.Contains(m.Text, want) {
			t.Errorf("text missing %q, got:\n%s", want, m.Text)
		}
	}

	want := [][]Button{
		{{Text: "Open project", URL: p.URL}, {Text: "Employer profile", URL: "https://freelancehunt.com/employer/acme.html"}},
		{{Text: "Bookmark", Data: "bm_add:42"}, {Text: "Block employer", Data: "bl_add:acme"}},
	}
	if diff := cmp.Diff(want, m.Keyboard); diff != "" {
		t.Errorf("keyboard mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatProjectWithoutEmployer(t *testing.T) {
	m := FormatProject(model.Project{ID: "1", URL: "https://x"}, nil)
	if !strings.Contains(m.Text, "Budget: <b>negotiable</b>") {
		t.Errorf("expected negotiable budget, got:\n%s", m.Text)
	}
	want := [][]Button{
		{{Text: "Open project", URL: "https://x"}},
		{{Text: "Bookmark", Data: "bm_add:1"}},
	}
	if diff := cmp.Diff(want, m.Keyboard); diff != "" {
		t.Errorf("keyboard mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatFeedEvent(t *testing.T) {
	tests := []struct {
		name      string
		event     model.FeedEvent
		wantText  string
		wantLinks int
	}{
		{
			name:      "known type with link",
			event:     model.FeedEvent{ID: "1", Type: "bid_won", Text: "Project X", URL: "https://x"},
			wantText:  "<b>You won the bid!</b>\n\nProject X",
			wantLinks: 1,
		},
		{
			name:     "unknown type without link",
			event:    model.FeedEvent{ID: "2", Type: "other"},
			wantText: "<b>New notification</b>\n\nNo details available",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FormatFeedEvent(tt.event)
			if diff := cmp.Diff(tt.wantText, m.Text); diff != "" {
				t.Errorf("text (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLinks, len(m.Keyboard)); diff != "" {
				t.Errorf("keyboard rows (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatKeywordsSkipsOversizedButtons(t *testing.T) {
	long := strings.Repeat("k", maxCallbackData)
	m := FormatKeywords([]string{"go", long})

	var data []string
	for _, row := range m.Keyboard {
		for _, b := range row {
			data = append(data, b.Data)
		}
	}
	want := []string{"kw_add_prompt", "kw_del:go", "kw_clear"}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("buttons mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.Text, long) {
		t.Error("long keyword should still be listed")
	}
}

func TestFormatDigest(t *testing.T) {
	bookmarks := []model.Bookmark{
		{ID: "1", Name: "One", URL: "https://1", Budget: "100 UAH"},
		{ID: "2", Name: "Two", URL: "https://2", Budget: "200 UAH"},
		{ID: "3", Name: "Three", URL: "https://3", Budget: "300 UAH"},
		{ID: "4", Name: "Four", URL: "https://4", Budget: "400 UAH"},
	}
	m := FormatDigest(DigestView{
		Day:       "2026-05-04",
		Counts:    map[model.Category]int{model.CategoryProject: 5, model.CategoryThread: 2},
		Keywords:  []string{"go"},
		Bookmarks: bookmarks,
		Projects:  []model.Alert{{Title: "Go API", URL: "https://p", Budget: "negotiable"}},
	})

	for _, want := range []string{
		"Daily digest — 2026-05-04",
		"New projects: 5",
		"Messages: 2",
		"Notifications: 0",
		`Filter: "go"`,
		`<a href="https://p">Go API</a> — negotiable`,
		"Bookmarks (4):",
		`<a href="https://3">Three</a>`,
		"...and 1 more",
	} {
		if !strings.Contains(m.Text, want) {
			t.Errorf("digest missing %q, got:\n%s", want, m.Text)
		}
	}
	if strings.Contains(m.Text, "Four") {
		t.Error("digest should list at most three bookmarks")
	}
}

func TestMainMenu(t *testing.T) {
	active := MainMenu(model.FilterConfig{})
	if diff := cmp.Diff(Button{Text: "Pause", Data: "pause"}, active.Keyboard[0][0]); diff != "" {
		t.Errorf("active menu (-want +got):\n%s", diff)
	}

	paused := MainMenu(model.FilterConfig{Paused: true, Keywords: []string{"a", "b"}, DigestTime: "09:00"})
	if diff := cmp.Diff(Button{Text: "Resume", Data: "resume"}, paused.Keyboard[0][0]); diff != "" {
		t.Errorf("paused menu (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Keywords (2)", paused.Keyboard[2][0].Text); diff != "" {
		t.Errorf("keyword label (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Digest 09:00", paused.Keyboard[5][0].Text); diff != "" {
		t.Errorf("digest label (-want +got):\n%s", diff)
	}
}

func TestInlineKeyboard(t *testing.T) {
	if _, ok := inlineKeyboard(nil); ok {
		t.Error("empty keyboard should not produce markup")
	}
	if _, ok := inlineKeyboard([][]Button{{{Text: "broken"}}}); ok {
		t.Error("buttons without url or data should be dropped")
	}

	kb, ok := inlineKeyboard([][]Button{{{Text: "Open", URL: "https://x"}, {Text: "Save", Data: "bm_add:1"}}})
	if !ok {
		t.Fatal("expected markup")
	}
	if diff := cmp.Diff(2, len(kb.InlineKeyboard[0])); diff != "" {
		t.Errorf("row length (-want +got):\n%s", diff)
	}
}
