package bot

import (
	"fmt"
	"html"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"fhunt_bot/internal/marketplace"
	"fhunt_bot/internal/model"
)

const (
	descriptionPreview = 280
	feedPreview        = 400
	digestBookmarks    = 3
)

// Message is an outbound chat message with optional inline buttons.
type Message struct {
	Text     string
	Keyboard [][]Button
}

// Button is an inline button. Exactly one of URL and Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

func linkButton(text, url string) Button { return Button{Text: text, URL: url} }

func dataButton(text, action, arg string) (Button, bool) {
	data, ok := callbackData(action, arg)
	return Button{Text: text, Data: data}, ok
}

var feedLabels = map[string]string{
	"bid_placed":        "New bid on your project",
	"bid_won":           "You won the bid!",
	"bid_rejected":      "Bid rejected",
	"project_done":      "Project completed",
	"employer_review":   "Employer left a review",
	"freelancer_review": "Freelancer left a review",
	"project_status":    "Project status changed",
	"contest_winner":    "Contest winner",
	"new_contest":       "New contest",
}

// FormatProject renders a project alert. The first keyword found in the
// title is highlighted.
func FormatProject(p model.Project, keywords []string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Project #%s</b>\n\n", html.EscapeString(p.ID.String()))
	b.WriteString(highlight(displayName(p.Name), keywords))
	if desc := truncate(strings.TrimSpace(p.Description), descriptionPreview); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(desc))
	}
	fmt.Fprintf(&b, "\n\nBudget: <b>%s</b>", html.EscapeString(p.BudgetLabel()))

	skills := "not specified"
	if len(p.Skills) > 0 {
		skills = strings.Join(p.Skills, ", ")
	}
	fmt.Fprintf(&b, "\nSkills: %s", html.EscapeString(skills))

	employer := p.EmployerLogin
	if employer == "" {
		employer = "unknown"
	}
	fmt.Fprintf(&b, "\nEmployer: %s", html.EscapeString(employer))
	if s := stars(p.EmployerRating); s != "" {
		b.WriteString(" " + s)
	}
	fmt.Fprintf(&b, " (%d reviews)", p.EmployerReviews)
	if p.IsSafe {
		b.WriteString("\nSafe deal")
	}

	top := []Button{linkButton("Open project", p.URL)}
	actions := []Button{}
	if bm, ok := dataButton("Bookmark", cbBookmarkAdd, p.ID.String()); ok {
		actions = append(actions, bm)
	}
	if p.EmployerLogin != "" {
		top = append(top, linkButton("Employer profile", marketplace.EmployerURL(p.EmployerLogin)))
		if bl, ok := dataButton("Block employer", cbBlock, p.EmployerLogin); ok {
			actions = append(actions, bl)
		}
	}
	return Message{Text: b.String(), Keyboard: rows(top, actions)}
}

// FormatThread renders an unread message thread alert.
func FormatThread(t model.Thread) Message {
	subject := t.Subject
	if subject == "" {
		subject = "New message"
	}
	sender := t.Sender
	if sender == "" {
		sender = "unknown"
	}
	text := fmt.Sprintf("<b>New message</b>\n\nSubject: %s\nFrom: %s\nUnread: %d",
		html.EscapeString(subject), html.EscapeString(sender), t.UnreadCount)
	return Message{Text: text, Keyboard: rows([]Button{linkButton("Open conversation", t.URL)})}
}

// FormatFeedEvent renders a personal feed notification.
func FormatFeedEvent(e model.FeedEvent) Message {
	label, ok := feedLabels[e.Type]
	if !ok {
		label = "New notification"
	}
	body := e.Text
	if body == "" {
		body = "No details available"
	}
	m := Message{Text: fmt.Sprintf("<b>%s</b>\n\n%s", label, html.EscapeString(truncate(body, feedPreview)))}
	if e.URL != "" {
		m.Keyboard = rows([]Button{linkButton("Open", e.URL)})
	}
	return m
}

// FormatReminder renders a fired reminder.
func FormatReminder(r model.Reminder) Message {
	return Message{
		Text:     fmt.Sprintf("<b>Reminder</b>\n\n<b>%s</b>", html.EscapeString(r.Name)),
		Keyboard: rows([]Button{linkButton("Open", r.URL)}),
	}
}

// StatusView is the data shown by /status.
type StatusView struct {
	Config       model.FilterConfig
	Interval     time.Duration
	Bookmarks    int
	Reminders    int
	SeenProjects int
}

// FormatStatus renders the bot state.
func FormatStatus(v StatusView) string {
	status := "active"
	if v.Config.Paused {
		status = "paused"
	}
	var b strings.Builder
	b.WriteString("<b>Bot status</b>\n\n")
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Interval: every %s\n", v.Interval)
	fmt.Fprintf(&b, "Min budget: %s\n", budgetFloor(v.Config.MinBudget, "no limit"))
	fmt.Fprintf(&b, "Keywords: %s\n", keywordList(v.Config.Keywords, "none (all projects)"))
	fmt.Fprintf(&b, "Digest: %s\n", orDefault(v.Config.DigestTime, "off"))
	fmt.Fprintf(&b, "Bookmarks: %d\n", v.Bookmarks)
	fmt.Fprintf(&b, "Reminders: %d\n", v.Reminders)
	fmt.Fprintf(&b, "Blacklist: %d employers\n", len(v.Config.Blacklist))
	fmt.Fprintf(&b, "Projects seen: %d", v.SeenProjects)
	return b.String()
}

// FormatStats renders the per-day counters.
func FormatStats(day string, counts map[model.Category]int, bookmarks, seenProjects int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Statistics for %s</b>\n\n", day)
	fmt.Fprintf(&b, "New projects: %d\n", counts[model.CategoryProject])
	fmt.Fprintf(&b, "New messages: %d\n", counts[model.CategoryThread])
	fmt.Fprintf(&b, "Notifications: %d\n\n", counts[model.CategoryFeed])
	fmt.Fprintf(&b, "Bookmarks: %d\n", bookmarks)
	fmt.Fprintf(&b, "Projects seen: %d", seenProjects)
	return b.String()
}

// FormatFilters renders the active filters.
func FormatFilters(cfg model.FilterConfig, skillIDs []int) Message {
	skills := "all"
	if len(skillIDs) > 0 {
		ids := make([]string, len(skillIDs))
		for i, id := range skillIDs {
			ids[i] = strconv.Itoa(id)
		}
		skills = strings.Join(ids, ", ")
	}
	blacklist := "empty"
	if len(cfg.Blacklist) > 0 {
		blacklist = strings.Join(sortedLogins(cfg.Blacklist), ", ")
	}

	var b strings.Builder
	b.WriteString("<b>Active filters</b>\n\n")
	fmt.Fprintf(&b, "Min budget: %s\n", budgetFloor(cfg.MinBudget, "not set"))
	fmt.Fprintf(&b, "Keywords: %s\n", keywordList(cfg.Keywords, "not set (all projects)"))
	fmt.Fprintf(&b, "Skills (IDs): %s\n", skills)
	fmt.Fprintf(&b, "Blacklist: %s", html.EscapeString(blacklist))

	return Message{
		Text: b.String(),
		Keyboard: [][]Button{
			{{Text: "Min budget", Data: cbBudgetPrompt}, {Text: "Add keyword", Data: cbKeywordPrompt}},
		},
	}
}

// FormatKeywords renders the keyword list with per-keyword delete buttons.
func FormatKeywords(keywords []string) Message {
	var b strings.Builder
	if len(keywords) == 0 {
		b.WriteString("<b>Keywords</b>\n\n")
		b.WriteString("The list is empty, so <b>all</b> projects are shown.\n\n")
		b.WriteString("Add words and only projects containing <b>at least one</b> of them will be shown.\n\n")
	} else {
		fmt.Fprintf(&b, "<b>Keywords (%d)</b>\n\n", len(keywords))
		for _, kw := range keywords {
			fmt.Fprintf(&b, "  • %s\n", html.EscapeString(kw))
		}
		b.WriteString("\nProjects containing <b>at least one</b> of these words are shown.\n\n")
	}
	b.WriteString("/addkw word — add\n/delkw word — remove\n/clearkw — clear all")

	kb := [][]Button{{{Text: "Add keyword", Data: cbKeywordPrompt}}}
	for _, kw := range keywords {
		if btn, ok := dataButton("Remove «"+kw+"»", cbKeywordDelete, kw); ok {
			kb = append(kb, []Button{btn})
		}
	}
	if len(keywords) > 0 {
		kb = append(kb, []Button{{Text: "Clear all", Data: cbKeywordClear}})
	}
	return Message{Text: b.String(), Keyboard: kb}
}

// FormatBookmark renders one saved project with its actions.
func FormatBookmark(bm model.Bookmark) Message {
	text := fmt.Sprintf("<b>%s</b>\nBudget: %s · Employer: %s\nSaved: %s",
		html.EscapeString(bm.Name), html.EscapeString(bm.Budget), html.EscapeString(bm.Employer),
		bm.SavedAt.Local().Format("02.01 15:04"))

	top := []Button{linkButton("Open", bm.URL)}
	if btn, ok := dataButton("Remove", cbBookmarkRemove, bm.ID.String()); ok {
		top = append(top, btn)
	}
	var remind []Button
	for _, h := range []int{1, 3} {
		if btn, ok := dataButton(fmt.Sprintf("Remind in %dh", h), cbRemind, fmt.Sprintf("%d:%s", h, bm.ID)); ok {
			remind = append(remind, btn)
		}
	}
	return Message{Text: text, Keyboard: rows(top, remind)}
}

// FormatBlacklist renders the blocked employers with unblock buttons.
func FormatBlacklist(logins []string) Message {
	if len(logins) == 0 {
		return Message{Text: "The blacklist is empty.\n\nPress «Block employer» under a project to add one."}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Blacklist (%d)</b>\n\n", len(logins))
	var kb [][]Button
	for _, l := range logins {
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(l))
		if btn, ok := dataButton("Unblock "+l, cbUnblock, l); ok {
			kb = append(kb, []Button{btn})
		}
	}
	return Message{Text: strings.TrimSuffix(b.String(), "\n"), Keyboard: kb}
}

// FormatProfile renders the marketplace account.
func FormatProfile(p *model.Profile) Message {
	text := fmt.Sprintf("<b>My profile</b>\n\nLogin: %s\nRating: %s %s\nBalance: %s %s",
		html.EscapeString(p.Login),
		strconv.FormatFloat(p.Rating, 'f', -1, 64), stars(p.Rating),
		strconv.FormatFloat(p.Balance, 'f', -1, 64), html.EscapeString(p.Currency))
	return Message{
		Text:     text,
		Keyboard: rows([]Button{linkButton("Open profile", marketplace.FreelancerURL(p.Login))}),
	}
}

// DigestView is the data shown in the daily digest.
type DigestView struct {
	Day       string
	Counts    map[model.Category]int
	Keywords  []string
	Bookmarks []model.Bookmark
	Projects  []model.Alert
}

// FormatDigest renders the daily summary.
func FormatDigest(v DigestView) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Daily digest — %s</b>\n\n", v.Day)
	fmt.Fprintf(&b, "New projects: %d\n", v.Counts[model.CategoryProject])
	fmt.Fprintf(&b, "Messages: %d\n", v.Counts[model.CategoryThread])
	fmt.Fprintf(&b, "Notifications: %d\n", v.Counts[model.CategoryFeed])
	fmt.Fprintf(&b, "Filter: %s\n", keywordList(v.Keywords, "all projects"))

	if len(v.Projects) > 0 {
		b.WriteString("\n<b>Today's projects:</b>\n")
		for _, a := range v.Projects {
			fmt.Fprintf(&b, "  • %s — %s\n", anchor(a.URL, a.Title), html.EscapeString(a.Budget))
		}
	}
	if n := len(v.Bookmarks); n > 0 {
		fmt.Fprintf(&b, "\n<b>Bookmarks (%d):</b>\n", n)
		for _, bm := range v.Bookmarks[:min(n, digestBookmarks)] {
			fmt.Fprintf(&b, "  • %s — %s\n", anchor(bm.URL, bm.Name), html.EscapeString(bm.Budget))
		}
		if n > digestBookmarks {
			fmt.Fprintf(&b, "  ...and %d more\n", n-digestBookmarks)
		}
	}
	return Message{Text: strings.TrimSuffix(b.String(), "\n")}
}

// HelpText lists the available commands.
const HelpText = `<b>Commands</b>

<b>Basics:</b>
/start — resume alerts
/pause — pause alerts
/menu — main menu
/status — state and filters
/stats — today's statistics

<b>Keywords:</b>
/keywords — list keywords
/addkw python — add a keyword
/delkw python — remove a keyword
/clearkw — clear all keywords

<b>Other filters:</b>
/budget 1000 — minimum budget
/budget 0 — clear the budget floor
/filter — active filters

<b>Search and bookmarks:</b>
/search word — one-off search
/bookmarks — saved projects
/blacklist — blocked employers

<b>Other:</b>
/digest 09:00 — daily digest (/digest 0 disables)
/profile — account and balance`

// MainMenu renders the main menu for the current configuration.
func MainMenu(cfg model.FilterConfig) Message {
	pause := Button{Text: "Pause", Data: cbPause}
	if cfg.Paused {
		pause = Button{Text: "Resume", Data: cbResume}
	}
	kw := "Keywords"
	if len(cfg.Keywords) > 0 {
		kw = fmt.Sprintf("Keywords (%d)", len(cfg.Keywords))
	}
	digest := "Digest: off"
	if cfg.DigestTime != "" {
		digest = "Digest " + cfg.DigestTime
	}
	return Message{
		Text: "<b>Main menu</b>",
		Keyboard: [][]Button{
			{pause, {Text: "Status", Data: cmdStatus}},
			{{Text: "Statistics", Data: cmdStats}, {Text: "Filters", Data: cmdFilter}},
			{{Text: kw, Data: cmdKeywords}, {Text: "Min budget", Data: cbBudgetPrompt}},
			{{Text: "Search", Data: cbSearchPrompt}, {Text: "Bookmarks", Data: cmdBookmarks}},
			{{Text: "Blacklist", Data: cmdBlacklist}, {Text: "My profile", Data: cmdProfile}},
			{{Text: digest, Data: cbDigestPrompt}, {Text: "Help", Data: cmdHelp}},
		},
	}
}

// highlight escapes name and wraps the first keyword occurrence in <b>.
func highlight(name string, keywords []string) string {
	runes := []rune(name)
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = unicode.ToLower(r)
	}
	for _, kw := range keywords {
		needle := []rune(strings.ToLower(kw))
		if i := indexRunes(folded, needle); i >= 0 {
			end := i + len(needle)
			return html.EscapeString(string(runes[:i])) +
				"<b>" + html.EscapeString(string(runes[i:end])) + "</b>" +
				html.EscapeString(string(runes[end:]))
		}
	}
	return html.EscapeString(name)
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

func stars(rating float64) string {
	n := min(5, int(math.Round(rating/20)))
	if n <= 0 {
		return ""
	}
	return strings.Repeat("★", n)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func displayName(name string) string {
	if name == "" {
		return "Untitled"
	}
	return name
}

func budgetFloor(n int, none string) string {
	if n <= 0 {
		return none
	}
	return fmt.Sprintf("%d UAH", n)
}

func keywordList(keywords []string, none string) string {
	if len(keywords) == 0 {
		return none
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = `"` + html.EscapeString(kw) + `"`
	}
	return strings.Join(quoted, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func anchor(url, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(displayName(text)))
}

func sortedLogins(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}

func rows(groups ...[]Button) [][]Button {
	var out [][]Button
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}
