package state

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fhunt_bot/internal/model"
)

func TestNewSeed(t *testing.T) {
	s := New(model.FilterConfig{
		MinBudget:  -10,
		Keywords:   []string{" Python", "python", "", "Go"},
		Blacklist:  map[string]struct{}{"bad": {}, "": {}},
		DigestTime: "09:00",
	})

	got := s.Config()
	want := model.FilterConfig{
		Keywords:   []string{"python", "go"},
		Blacklist:  map[string]struct{}{"bad": {}},
		DigestTime: "09:00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Config() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigIsACopy(t *testing.T) {
	s := New(model.FilterConfig{Keywords: []string{"a"}})
	cfg := s.Config()
	cfg.Keywords[0] = "mutated"
	cfg.Blacklist["x"] = struct{}{}

	got := s.Config()
	if diff := cmp.Diff([]string{"a"}, got.Keywords); diff != "" {
		t.Errorf("keywords leaked (-want +got):\n%s", diff)
	}
	if got.IsBlocked("x") {
		t.Error("blacklist leaked through snapshot")
	}
}

func TestKeywords(t *testing.T) {
	s := New(model.FilterConfig{})

	steps := []struct {
		name      string
		op        func() (bool, int)
		wantOK    bool
		wantCount int
	}{
		{name: "add", op: func() (bool, int) { return s.AddKeyword("Python") }, wantOK: true, wantCount: 1},
		{name: "add duplicate other case", op: func() (bool, int) { return s.AddKeyword("PYTHON") }, wantOK: false, wantCount: 1},
		{name: "add second", op: func() (bool, int) { return s.AddKeyword("django") }, wantOK: true, wantCount: 2},
		{name: "add blank", op: func() (bool, int) { return s.AddKeyword("   ") }, wantOK: false, wantCount: 2},
		{name: "remove present", op: func() (bool, int) { return s.RemoveKeyword("Python") }, wantOK: true, wantCount: 1},
		{name: "remove absent", op: func() (bool, int) { return s.RemoveKeyword("rust") }, wantOK: false, wantCount: 1},
	}

	for _, st := range steps {
		ok, n := st.op()
		if diff := cmp.Diff([]any{st.wantOK, st.wantCount}, []any{ok, n}); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", st.name, diff)
		}
	}

	if diff := cmp.Diff([]string{"django"}, s.Config().Keywords); diff != "" {
		t.Errorf("keywords (-want +got):\n%s", diff)
	}

	s.ClearKeywords()
	if got := len(s.Config().Keywords); got != 0 {
		t.Errorf("expected no keywords after clear, got %d", got)
	}
}

func TestSetMinBudget(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 1000, want: 1000},
		{in: 0, want: 0},
		{in: -5, want: 0},
	}
	for _, tt := range tests {
		s := New(model.FilterConfig{MinBudget: 300})
		got := s.SetMinBudget(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("SetMinBudget(%d) (-want +got):\n%s", tt.in, diff)
		}
		if diff := cmp.Diff(tt.want, s.Config().MinBudget); diff != "" {
			t.Errorf("stored budget (-want +got):\n%s", diff)
		}
	}
}

func TestSeenNamespaces(t *testing.T) {
	s := New(model.FilterConfig{})

	if s.HasSeen(model.CategoryProject, "1") {
		t.Fatal("fresh store must not report seen")
	}
	s.MarkSeen(model.CategoryProject, "1")

	if !s.HasSeen(model.CategoryProject, "1") {
		t.Error("project 1 should be seen")
	}
	if s.HasSeen(model.CategoryThread, "1") || s.HasSeen(model.CategoryFeed, "1") {
		t.Error("ids must not leak across categories")
	}

	if s.Observe(model.CategoryProject, "1") {
		t.Error("second observation must not be a first sighting")
	}
	if !s.Observe(model.CategoryFeed, "1") {
		t.Error("first feed observation must be a first sighting")
	}
	if diff := cmp.Diff(1, s.SeenCount(model.CategoryProject)); diff != "" {
		t.Errorf("seen count (-want +got):\n%s", diff)
	}
}

func TestBlacklist(t *testing.T) {
	s := New(model.FilterConfig{})

	if !s.Block("zed") || !s.Block("amy") {
		t.Fatal("block should report insertion")
	}
	if s.Block("amy") {
		t.Error("blocking twice should be a no-op")
	}
	if diff := cmp.Diff([]string{"amy", "zed"}, s.Blacklist()); diff != "" {
		t.Errorf("blacklist (-want +got):\n%s", diff)
	}
	if s.Unblock("nobody") {
		t.Error("unblocking an absent login should report false")
	}
	s.Unblock("zed")
	if !s.Config().IsBlocked("amy") || s.Config().IsBlocked("zed") {
		t.Error("unexpected blacklist contents after unblock")
	}
}

func TestBookmarks(t *testing.T) {
	s := New(model.FilterConfig{})

	s.AddBookmark(model.Bookmark{ID: "2", Name: "second"})
	s.AddBookmark(model.Bookmark{ID: "1", Name: "first"})
	if s.AddBookmark(model.Bookmark{ID: "2", Name: "dup"}) {
		t.Error("duplicate bookmark should not be added")
	}

	var names []string
	for _, b := range s.Bookmarks() {
		names = append(names, b.Name)
	}
	if diff := cmp.Diff([]string{"second", "first"}, names); diff != "" {
		t.Errorf("bookmark order (-want +got):\n%s", diff)
	}

	if !s.RemoveBookmark("2") || s.RemoveBookmark("2") {
		t.Error("remove should succeed once")
	}
	if _, ok := s.Bookmark("2"); ok {
		t.Error("bookmark 2 should be gone")
	}
	if diff := cmp.Diff(1, len(s.Bookmarks())); diff != "" {
		t.Errorf("bookmark count (-want +got):\n%s", diff)
	}
}

func TestTakeDueReminders(t *testing.T) {
	s := New(model.FilterConfig{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.AddReminder(model.Reminder{EntityID: "past", FireAt: now.Add(-time.Minute)})
	s.AddReminder(model.Reminder{EntityID: "future", FireAt: now.Add(time.Hour)})
	s.AddReminder(model.Reminder{EntityID: "exact", FireAt: now})

	var ids []model.EntityID
	for _, r := range s.TakeDueReminders(now) {
		ids = append(ids, r.EntityID)
	}
	if diff := cmp.Diff([]model.EntityID{"past", "exact"}, ids); diff != "" {
		t.Errorf("due reminders (-want +got):\n%s", diff)
	}
	if got := s.TakeDueReminders(now); len(got) != 0 {
		t.Errorf("reminders must fire once, got %d again", len(got))
	}
	if diff := cmp.Diff(1, s.ReminderCount()); diff != "" {
		t.Errorf("remaining (-want +got):\n%s", diff)
	}
}

func TestPending(t *testing.T) {
	s := New(model.FilterConfig{})

	s.SetPending(1, model.PendingBudget)
	s.SetPending(1, model.PendingKeyword)
	s.SetPending(2, model.PendingSearch)

	if diff := cmp.Diff(model.PendingKeyword, s.TakePending(1)); diff != "" {
		t.Errorf("chat 1 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.PendingNone, s.TakePending(1)); diff != "" {
		t.Errorf("chat 1 after take (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.PendingSearch, s.TakePending(2)); diff != "" {
		t.Errorf("chat 2 (-want +got):\n%s", diff)
	}
}

func TestClaimDigest(t *testing.T) {
	s := New(model.FilterConfig{})
	at := time.Date(2026, 3, 1, 9, 0, 20, 0, time.Local)

	if s.ClaimDigest(at) {
		t.Fatal("disabled digest must not fire")
	}

	s.SetDigestTime("09:00")
	if s.ClaimDigest(at.Add(-time.Minute)) {
		t.Error("digest fired before its time")
	}
	if !s.ClaimDigest(at) {
		t.Error("digest should fire at its time")
	}
	if s.ClaimDigest(at.Add(30 * time.Second)) {
		t.Error("digest fired twice on the same day")
	}
	if !s.ClaimDigest(at.AddDate(0, 0, 1)) {
		t.Error("digest should fire again the next day")
	}
}

func TestReleaseDigest(t *testing.T) {
	s := New(model.FilterConfig{DigestTime: "09:00"})
	at := time.Date(2026, 3, 1, 9, 0, 5, 0, time.Local)

	if !s.ClaimDigest(at) {
		t.Fatal("digest should fire at its time")
	}
	s.ReleaseDigest("2026-02-28")
	if s.ClaimDigest(at.Add(30 * time.Second)) {
		t.Error("releasing another day must keep today's claim")
	}
	s.ReleaseDigest(model.DayOf(at))
	if !s.ClaimDigest(at.Add(30 * time.Second)) {
		t.Error("released digest should fire again")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(model.FilterConfig{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				s.AddKeyword(string(rune('a' + i)))
				s.Observe(model.CategoryProject, model.EntityID(rune('a'+j%26)))
				_ = s.Config()
				s.RemoveKeyword(string(rune('a' + i)))
			}
		}()
	}
	wg.Wait()

	if diff := cmp.Diff(26, s.SeenCount(model.CategoryProject)); diff != "" {
		t.Errorf("seen count (-want +got):\n%s", diff)
	}
}
