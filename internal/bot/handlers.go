package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"fhunt_bot/internal/filter"
	"fhunt_bot/internal/model"
	"fhunt_bot/internal/state"
)

// searchPageSize is the number of recent projects scanned by /search.
const searchPageSize = 50

const (
	cmdStart     = "start"
	cmdPause     = "pause"
	cmdResume    = "resume"
	cmdMenu      = "menu"
	cmdStatus    = "status"
	cmdStats     = "stats"
	cmdFilter    = "filter"
	cmdKeywords  = "keywords"
	cmdAddKw     = "addkw"
	cmdDelKw     = "delkw"
	cmdClearKw   = "clearkw"
	cmdSearch    = "search"
	cmdBudget    = "budget"
	cmdBookmarks = "bookmarks"
	cmdBlacklist = "blacklist"
	cmdDigest    = "digest"
	cmdProfile   = "profile"
	cmdHelp      = "help"
)

const (
	promptKeyword = "Send the keyword to add:"
	promptSearch  = "Send a word for a one-off search:"
	promptBudget  = "Send the minimum budget in UAH (0 clears the filter):"
	promptDigest  = "Send the digest time as HH:MM (or 0 to disable):"
)

// ApplyCommand runs a chat command. Commands that need an argument and
// get none put the chat into the matching pending mode.
func (b *Bot) ApplyCommand(ctx context.Context, chatID int64, cmd, arg string) {
	cmd = strings.ToLower(cmd)
	arg = strings.TrimSpace(arg)

	b.log.Debug("command", "cmd", cmd, "arg", arg, "chat_id", chatID)

	switch cmd {
	case cmdStart:
		b.handleStart(ctx, chatID)
	case cmdPause:
		b.setPaused(true)
		b.replyText(ctx, chatID, "Paused. Use /start to resume.")
	case cmdResume:
		b.setPaused(false)
		b.replyText(ctx, chatID, "Resumed.")
	case cmdMenu:
		b.sendMenu(ctx, chatID)
	case cmdStatus:
		b.handleStatus(ctx, chatID)
	case cmdStats:
		b.handleStats(ctx, chatID)
	case cmdFilter:
		b.reply(ctx, chatID, FormatFilters(b.state.Config(), b.cfg.SkillIDs))
	case cmdKeywords:
		b.handleKeywords(ctx, chatID)
	case cmdAddKw:
		if arg == "" {
			b.prompt(ctx, chatID, model.PendingKeyword, promptKeyword)
			break
		}
		b.addKeyword(ctx, chatID, arg)
	case cmdDelKw:
		b.handleDelKeyword(ctx, chatID, arg)
	case cmdClearKw:
		b.state.ClearKeywords()
		b.replyText(ctx, chatID, "All keywords removed. All projects are shown now.")
	case cmdSearch:
		if arg == "" {
			b.prompt(ctx, chatID, model.PendingSearch, promptSearch)
			break
		}
		b.search(ctx, chatID, arg)
	case cmdBudget:
		if arg == "" {
			b.prompt(ctx, chatID, model.PendingBudget, promptBudget)
			break
		}
		b.setBudget(ctx, chatID, arg)
	case cmdBookmarks:
		b.handleBookmarks(ctx, chatID)
	case cmdBlacklist:
		b.reply(ctx, chatID, FormatBlacklist(b.state.Blacklist()))
	case cmdDigest:
		if arg == "" {
			b.prompt(ctx, chatID, model.PendingDigestTime, promptDigest)
			break
		}
		b.setDigest(ctx, chatID, arg)
	case cmdProfile:
		b.handleProfile(ctx, chatID)
	case cmdHelp:
		b.replyText(ctx, chatID, HelpText)
	default:
		b.countCommand("unknown")
		b.replyText(ctx, chatID, "Unknown command. Use /help for a list of commands.")
		return
	}
	b.countCommand(cmd)
}

// ApplyFreeText handles a non-command message. A pending mode is consumed
// and the text is used as the argument of the command that set it;
// otherwise the main menu is shown.
func (b *Bot) ApplyFreeText(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)

	switch b.state.TakePending(chatID) {
	case model.PendingKeyword:
		b.addKeyword(ctx, chatID, text)
		b.handleKeywords(ctx, chatID)
	case model.PendingSearch:
		if text == "" {
			b.replyText(ctx, chatID, "Empty search term.")
			return
		}
		b.search(ctx, chatID, text)
	case model.PendingBudget:
		b.setBudget(ctx, chatID, text)
	case model.PendingDigestTime:
		b.setDigest(ctx, chatID, text)
	default:
		b.sendMenu(ctx, chatID)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.setPaused(false)
	cfg := b.state.Config()
	keywords := "none (all projects)"
	if n := len(cfg.Keywords); n > 0 {
		keywords = fmt.Sprint(n)
	}
	b.replyText(ctx, chatID, fmt.Sprintf("<b>Freelancehunt bot is active!</b>\n\nChecking every %s.\nKeywords: %s",
		b.cfg.CheckInterval, keywords))
	b.reply(ctx, chatID, MainMenu(cfg))
}

func (b *Bot) setPaused(paused bool) {
	b.state.SetPaused(paused)
	b.metrics.SetPaused(paused)
	b.log.Info("pause state changed", "paused", paused)
}

func (b *Bot) sendMenu(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, MainMenu(b.state.Config()))
}

func (b *Bot) prompt(ctx context.Context, chatID int64, mode model.PendingMode, text string) {
	b.state.SetPending(chatID, mode)
	b.replyText(ctx, chatID, text)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	b.replyText(ctx, chatID, FormatStatus(StatusView{
		Config:       b.state.Config(),
		Interval:     b.cfg.CheckInterval,
		Bookmarks:    len(b.state.Bookmarks()),
		Reminders:    b.state.ReminderCount(),
		SeenProjects: b.state.SeenCount(model.CategoryProject),
	}))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	day := model.DayOf(b.now())
	counts, err := b.store.CountByDay(ctx, day)
	if err != nil {
		b.log.Error("count alerts", "day", day, "error", err)
		b.replyText(ctx, chatID, "Failed to load statistics.")
		return
	}
	b.replyText(ctx, chatID, FormatStats(day, counts, len(b.state.Bookmarks()), b.state.SeenCount(model.CategoryProject)))
}

func (b *Bot) handleKeywords(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, FormatKeywords(b.state.Config().Keywords))
}

func (b *Bot) addKeyword(ctx context.Context, chatID int64, raw string) {
	kw := state.NormalizeKeyword(raw)
	if kw == "" {
		b.replyText(ctx, chatID, "Empty keyword, nothing added.")
		return
	}
	added, count := b.state.AddKeyword(kw)
	if !added {
		b.replyText(ctx, chatID, fmt.Sprintf("Keyword «%s» is already in the list.", html.EscapeString(kw)))
		return
	}
	b.replyText(ctx, chatID, fmt.Sprintf("Added keyword «<b>%s</b>».\nKeywords: %d\n\nOnly projects containing at least one of them are shown now.",
		html.EscapeString(kw), count))
}

func (b *Bot) handleDelKeyword(ctx context.Context, chatID int64, raw string) {
	kw := state.NormalizeKeyword(raw)
	if kw == "" {
		b.replyText(ctx, chatID, "Specify a keyword, e.g. /delkw python")
		return
	}
	b.replyText(ctx, chatID, b.removeKeyword(kw))
}

func (b *Bot) removeKeyword(kw string) string {
	removed, remaining := b.state.RemoveKeyword(kw)
	if !removed {
		return fmt.Sprintf("Keyword «%s» is not in the list.", html.EscapeString(kw))
	}
	text := fmt.Sprintf("Removed «%s». Keywords left: %d", html.EscapeString(kw), remaining)
	if remaining == 0 {
		text += "\nAll projects are shown now."
	}
	return text
}

func (b *Bot) setBudget(ctx context.Context, chatID int64, raw string) {
	n, err := ParseBudget(raw)
	if err != nil {
		b.replyText(ctx, chatID, "Send a number, e.g. /budget 1000")
		return
	}
	if v := b.state.SetMinBudget(n); v > 0 {
		b.replyText(ctx, chatID, fmt.Sprintf("Minimum budget: <b>%d UAH</b>", v))
		return
	}
	b.replyText(ctx, chatID, "Budget filter cleared.")
}

func (b *Bot) setDigest(ctx context.Context, chatID int64, raw string) {
	hhmm, err := ParseDigestTime(raw)
	if err != nil {
		b.replyText(ctx, chatID, "Format: /digest 09:00 (or /digest 0 to disable)")
		return
	}
	b.state.SetDigestTime(hhmm)
	if hhmm == "" {
		b.replyText(ctx, chatID, "Daily digest disabled.")
		return
	}
	b.replyText(ctx, chatID, fmt.Sprintf("Daily digest at <b>%s</b>", hhmm))
}

func (b *Bot) search(ctx context.Context, chatID int64, term string) {
	b.replyText(ctx, chatID, fmt.Sprintf("Searching for «<b>%s</b>»...", html.EscapeString(term)))

	projects, err := b.market.Projects(ctx, searchPageSize, b.cfg.SkillIDs)
	if err != nil {
		b.log.Error("search projects", "term", term, "error", err)
		b.replyText(ctx, chatID, "Search failed, try again later.")
		return
	}

	results := filter.Search(projects, term, filter.SearchLimit)
	if len(results) == 0 {
		b.replyText(ctx, chatID, "Nothing found. Try another word.")
		return
	}

	b.replyText(ctx, chatID, fmt.Sprintf("Found: %d", len(results)))
	keywords := b.state.Config().Keywords
	for _, p := range results {
		alert := model.ProjectAlert(model.KindSearch, p)
		if err := b.store.RecordAlert(ctx, &alert); err != nil {
			b.log.Error("record search result", "project_id", p.ID, "error", err)
		}
		b.reply(ctx, chatID, FormatProject(p, keywords))
	}
}

func (b *Bot) handleBookmarks(ctx context.Context, chatID int64) {
	bookmarks := b.state.Bookmarks()
	if len(bookmarks) == 0 {
		b.replyText(ctx, chatID, "No bookmarks yet.\n\nPress «Bookmark» under any project to save it.")
		return
	}
	b.replyText(ctx, chatID, fmt.Sprintf("<b>Saved projects (%d)</b>", len(bookmarks)))
	for _, bm := range bookmarks {
		b.reply(ctx, chatID, FormatBookmark(bm))
	}
}

func (b *Bot) handleProfile(ctx context.Context, chatID int64) {
	p, err := b.market.Profile(ctx)
	if err != nil {
		b.log.Error("fetch profile", "error", err)
		b.replyText(ctx, chatID, "Failed to load the profile.")
		return
	}
	b.reply(ctx, chatID, FormatProfile(p))
}
