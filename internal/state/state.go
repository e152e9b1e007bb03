// Package state holds the process-wide mutable bot state behind a single mutex.
package state

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"fhunt_bot/internal/model"
)

// State is shared by the poll loop, the update loop, the reminder sweep
// and the digest check. All accessors return copies.
type State struct {
	mu sync.Mutex

	paused     bool
	minBudget  int
	keywords   []string
	blacklist  map[string]struct{}
	digestTime string
	digestSent string

	seen map[model.Category]map[model.EntityID]struct{}

	bookmarks     map[model.EntityID]model.Bookmark
	bookmarkOrder []model.EntityID
	reminders     []model.Reminder

	pending map[int64]model.PendingMode
}

// New creates a State seeded with an initial filter configuration.
func New(seed model.FilterConfig) *State {
	s := &State{
		blacklist: make(map[string]struct{}),
		seen:      make(map[model.Category]map[model.EntityID]struct{}, len(model.Categories)),
		bookmarks: make(map[model.EntityID]model.Bookmark),
		pending:   make(map[int64]model.PendingMode),
	}
	for _, c := range model.Categories {
		s.seen[c] = make(map[model.EntityID]struct{})
	}

	s.paused = seed.Paused
	s.minBudget = max(0, seed.MinBudget)
	s.digestTime = seed.DigestTime
	for _, kw := range seed.Keywords {
		s.addKeyword(kw)
	}
	for login := range seed.Blacklist {
		if login != "" {
			s.blacklist[login] = struct{}{}
		}
	}
	return s
}

// Config returns a snapshot of the filter configuration.
func (s *State) Config() model.FilterConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	bl := make(map[string]struct{}, len(s.blacklist))
	for k := range s.blacklist {
		bl[k] = struct{}{}
	}
	return model.FilterConfig{
		Paused:     s.paused,
		MinBudget:  s.minBudget,
		Keywords:   slices.Clone(s.keywords),
		Blacklist:  bl,
		DigestTime: s.digestTime,
	}
}

// Paused reports whether polling is suspended.
func (s *State) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetPaused switches between the active and paused states.
func (s *State) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// NormalizeKeyword lower-cases and trims a keyword.
func NormalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}

// AddKeyword appends a keyword unless an equal one (case-insensitive)
// is already present. It returns whether the list changed and its length.
func (s *State) AddKeyword(kw string) (added bool, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added = s.addKeyword(kw)
	return added, len(s.keywords)
}

func (s *State) addKeyword(kw string) bool {
	kw = NormalizeKeyword(kw)
	if kw == "" || slices.Contains(s.keywords, kw) {
		return false
	}
	s.keywords = append(s.keywords, kw)
	return true
}

// RemoveKeyword deletes a keyword. It returns whether it was present and
// the remaining count.
func (s *State) RemoveKeyword(kw string) (removed bool, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kw = NormalizeKeyword(kw)
	if i := slices.Index(s.keywords, kw); i >= 0 {
		s.keywords = slices.Delete(s.keywords, i, i+1)
		removed = true
	}
	return removed, len(s.keywords)
}

// ClearKeywords removes every keyword.
func (s *State) ClearKeywords() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = nil
}

// SetMinBudget sets the budget floor; values <= 0 disable it.
func (s *State) SetMinBudget(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minBudget = max(0, n)
	return s.minBudget
}

// SetDigestTime sets the daily digest time ("HH:MM"); "" disables it.
// The value must already be validated.
func (s *State) SetDigestTime(hhmm string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digestTime = hhmm
}

// ClaimDigest reports whether the digest is due at now and, if so, marks
// it as sent for that day so it fires at most once per calendar day.
func (s *State) ClaimDigest(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.digestTime == "" {
		return false
	}
	day := model.DayOf(now)
	if s.digestSent == day || now.Local().Format("15:04") != s.digestTime {
		return false
	}
	s.digestSent = day
	return true
}

// ReleaseDigest undoes a ClaimDigest for day so that the next check can
// retry a failed delivery.
func (s *State) ReleaseDigest(day string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.digestSent == day {
		s.digestSent = ""
	}
}

// Block adds a login to the blacklist. It returns false if already present.
func (s *State) Block(login string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blacklist[login]; ok || login == "" {
		return false
	}
	s.blacklist[login] = struct{}{}
	return true
}

// Unblock removes a login from the blacklist; absent logins are ignored.
func (s *State) Unblock(login string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blacklist[login]; !ok {
		return false
	}
	delete(s.blacklist, login)
	return true
}

// Blacklist returns the blacklisted logins sorted alphabetically.
func (s *State) Blacklist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.blacklist))
	for l := range s.blacklist {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// HasSeen reports whether id was observed in category. It is the read half
// of the fingerprint store; the poll cycle uses Observe, which checks and
// marks under one lock.
func (s *State) HasSeen(c model.Category, id model.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[c][id]
	return ok
}

// MarkSeen records id in category. Entries are never removed.
func (s *State) MarkSeen(c model.Category, id model.EntityID) {
	s.Observe(c, id)
}

// Observe marks id as seen in category and reports whether this was the
// first sighting.
func (s *State) Observe(c model.Category, id model.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.seen[c]
	if !ok {
		set = make(map[model.EntityID]struct{})
		s.seen[c] = set
	}
	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}
	return true
}

// SeenCount returns the number of ids observed in category.
func (s *State) SeenCount(c model.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen[c])
}

// AddBookmark saves b. It returns false if the id is already bookmarked.
func (s *State) AddBookmark(b model.Bookmark) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[b.ID]; ok {
		return false
	}
	s.bookmarks[b.ID] = b
	s.bookmarkOrder = append(s.bookmarkOrder, b.ID)
	return true
}

// RemoveBookmark deletes a bookmark; absent ids are ignored.
func (s *State) RemoveBookmark(id model.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[id]; !ok {
		return false
	}
	delete(s.bookmarks, id)
	s.bookmarkOrder = slices.DeleteFunc(s.bookmarkOrder, func(v model.EntityID) bool { return v == id })
	return true
}

// Bookmark returns a single bookmark.
func (s *State) Bookmark(id model.EntityID) (model.Bookmark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookmarks[id]
	return b, ok
}

// Bookmarks returns all bookmarks in the order they were saved.
func (s *State) Bookmarks() []model.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Bookmark, 0, len(s.bookmarkOrder))
	for _, id := range s.bookmarkOrder {
		out = append(out, s.bookmarks[id])
	}
	return out
}

// AddReminder schedules a reminder.
func (s *State) AddReminder(r model.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, r)
}

// TakeDueReminders removes and returns every reminder due at now.
func (s *State) TakeDueReminders(now time.Time) []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []model.Reminder
	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if !r.FireAt.After(now) {
			due = append(due, r)
			continue
		}
		kept = append(kept, r)
	}
	s.reminders = kept
	return due
}

// ReminderCount returns the number of pending reminders.
func (s *State) ReminderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reminders)
}

// SetPending makes chatID wait for a free-text reply, replacing any
// previous mode.
func (s *State) SetPending(chatID int64, mode model.PendingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == model.PendingNone {
		delete(s.pending, chatID)
		return
	}
	s.pending[chatID] = mode
}

// TakePending returns and clears the pending mode of chatID.
func (s *State) TakePending(chatID int64) model.PendingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode := s.pending[chatID]
	delete(s.pending, chatID)
	return mode
}
