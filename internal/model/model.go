// Package model defines the domain types used across the application.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayLayout is the calendar-day key used for statistics and the digest.
const DayLayout = "2006-01-02"

// DayOf returns the local calendar day of t.
func DayOf(t time.Time) string {
	return t.Local().Format(DayLayout)
}

// Category identifies one of the independently deduplicated marketplace feeds.
type Category string

// Supported categories.
const (
	CategoryProject Category = "project"
	CategoryThread  Category = "thread"
	CategoryFeed    Category = "feed"

	// KindSearch marks projects shown by a manual search. It is journaled
	// but never counted as a dispatched alert.
	KindSearch Category = "search"
)

// Categories lists the polled categories in dispatch order.
var Categories = []Category{CategoryProject, CategoryThread, CategoryFeed}

// EntityID is an opaque marketplace identifier. It is compared by equality
// and never parsed.
type EntityID string

func (id EntityID) String() string { return string(id) }

// Project is a marketplace project listing.
type Project struct {
	ID              EntityID
	Name            string
	Description     string
	Budget          float64
	Currency        string
	Skills          []string
	EmployerLogin   string
	EmployerRating  float64
	EmployerReviews int
	IsSafe          bool
	URL             string
}

// BudgetLabel renders the budget for display, e.g. "1500 UAH".
func (p Project) BudgetLabel() string {
	if p.Budget <= 0 {
		return "negotiable"
	}
	cur := p.Currency
	if cur == "" {
		cur = "UAH"
	}
	return strconv.FormatFloat(p.Budget, 'f', -1, 64) + " " + cur
}

// Thread is a private message thread.
type Thread struct {
	ID          EntityID
	Subject     string
	Sender      string
	UnreadCount int
	URL         string
}

// FeedEvent is an entry of the personal notification feed.
type FeedEvent struct {
	ID   EntityID
	Type string
	Text string
	URL  string
}

// Profile is the authenticated marketplace account.
type Profile struct {
	Login    string
	Rating   float64
	Balance  float64
	Currency string
}

// FilterConfig is the user-configured filter state. Values returned by
// state accessors are copies and safe to read without locking.
type FilterConfig struct {
	Paused     bool
	MinBudget  int
	Keywords   []string
	Blacklist  map[string]struct{}
	DigestTime string
}

// IsBlocked reports whether login is blacklisted.
func (c FilterConfig) IsBlocked(login string) bool {
	if login == "" {
		return false
	}
	_, ok := c.Blacklist[login]
	return ok
}

// Bookmark is a project saved by the user.
type Bookmark struct {
	ID       EntityID
	Name     string
	URL      string
	Budget   string
	Employer string
	SavedAt  time.Time
}

// Reminder is a one-shot notification about a project.
type Reminder struct {
	FireAt   time.Time
	EntityID EntityID
	Name     string
	URL      string
}

// PendingMode tags a chat that is waiting for a free-text reply.
type PendingMode string

// Supported pending modes.
const (
	PendingNone       PendingMode = ""
	PendingKeyword    PendingMode = "awaiting_keyword"
	PendingBudget     PendingMode = "awaiting_budget"
	PendingDigestTime PendingMode = "awaiting_digest_time"
	PendingSearch     PendingMode = "awaiting_search_term"
)

// Alert is a journal entry for an entity surfaced to the chat.
type Alert struct {
	ID           int64
	Kind         Category
	EntityID     EntityID
	Title        string
	URL          string
	Budget       string
	Counterparty string
	SentAt       time.Time
}

// ProjectAlert builds the journal entry for a project.
func ProjectAlert(kind Category, p Project) Alert {
	return Alert{
		Kind:         kind,
		EntityID:     p.ID,
		Title:        p.Name,
		URL:          p.URL,
		Budget:       p.BudgetLabel(),
		Counterparty: p.EmployerLogin,
	}
}

// PlaceholderName is the display name used when nothing is known about a project.
func PlaceholderName(id EntityID) string {
	return fmt.Sprintf("Project #%s", id)
}

// ParseClock validates a 24-hour "HH:MM" time of day and returns it in
// canonical two-digit form.
func ParseClock(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Format("15:04"), nil
}
