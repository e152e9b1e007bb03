package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fhunt_bot/internal/marketplace"
	"fhunt_bot/internal/model"
	"fhunt_bot/internal/storage"
)

const (
	cbPause          = "pause"
	cbResume         = "resume"
	cbSearchPrompt   = "search_prompt"
	cbBudgetPrompt   = "budget_prompt"
	cbDigestPrompt   = "digest_prompt"
	cbKeywordPrompt  = "kw_add_prompt"
	cbKeywordClear   = "kw_clear"
	cbKeywordDelete  = "kw_del"
	cbBookmarkAdd    = "bm_add"
	cbBookmarkRemove = "bm_remove"
	cbRemind         = "remind"
	cbBlock          = "bl_add"
	cbUnblock        = "bl_remove"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	b.log.Info("callback", "data", cb.Data, "chat_id", chatID, "user_id", userID)

	toast := b.ApplyCallback(ctx, chatID, cb.Data)
	b.answer(cb.ID, toast)
}

// ApplyCallback handles an inline button press and returns the toast text
// to show in the acknowledgement.
func (b *Bot) ApplyCallback(ctx context.Context, chatID int64, data string) string {
	action, arg := ParseCallback(data)

	switch action {
	case cmdStatus, cmdStats, cmdFilter, cmdKeywords, cmdBookmarks, cmdBlacklist, cmdProfile, cmdHelp:
		b.ApplyCommand(ctx, chatID, action, "")
		return ""
	}

	var toast string
	switch action {
	case cbPause:
		b.setPaused(true)
		b.replyText(ctx, chatID, "Paused.")
		b.sendMenu(ctx, chatID)
		toast = "Paused"
	case cbResume:
		b.setPaused(false)
		b.replyText(ctx, chatID, "Resumed!")
		b.sendMenu(ctx, chatID)
		toast = "Resumed"
	case cbSearchPrompt:
		b.prompt(ctx, chatID, model.PendingSearch, promptSearch)
	case cbBudgetPrompt:
		b.prompt(ctx, chatID, model.PendingBudget, promptBudget)
	case cbDigestPrompt:
		b.prompt(ctx, chatID, model.PendingDigestTime, promptDigest)
	case cbKeywordPrompt:
		b.prompt(ctx, chatID, model.PendingKeyword, promptKeyword)
	case cbKeywordClear:
		b.state.ClearKeywords()
		b.replyText(ctx, chatID, "All keywords removed. All projects are shown now.")
		toast = "Cleared"
	case cbKeywordDelete:
		b.replyText(ctx, chatID, b.removeKeyword(arg))
		b.handleKeywords(ctx, chatID)
		toast = "Removed"
	case cbBookmarkAdd:
		toast = b.saveBookmark(ctx, chatID, model.EntityID(arg))
	case cbBookmarkRemove:
		id := model.EntityID(arg)
		if b.state.RemoveBookmark(id) {
			b.replyText(ctx, chatID, fmt.Sprintf("Project #%s removed from bookmarks.", html.EscapeString(arg)))
		}
		toast = "Removed"
	case cbRemind:
		toast = b.addReminder(ctx, chatID, arg)
	case cbBlock:
		if arg == "" {
			return ""
		}
		b.state.Block(arg)
		b.replyText(ctx, chatID, fmt.Sprintf("<b>%s</b> added to the blacklist.", html.EscapeString(arg)))
		toast = "Blocked"
	case cbUnblock:
		b.state.Unblock(arg)
		b.replyText(ctx, chatID, fmt.Sprintf("<b>%s</b> unblocked.", html.EscapeString(arg)))
		b.reply(ctx, chatID, FormatBlacklist(b.state.Blacklist()))
		toast = "Unblocked"
	default:
		b.log.Debug("unknown callback", "data", data)
		return ""
	}
	b.countCommand(action)
	return toast
}

// saveBookmark bookmarks a project, filling in details from the alert
// journal when the project was shown before.
func (b *Bot) saveBookmark(ctx context.Context, chatID int64, id model.EntityID) string {
	if id == "" {
		return ""
	}

	bm := model.Bookmark{
		ID:       id,
		Name:     model.PlaceholderName(id),
		URL:      marketplace.ProjectURL(id, "", "", ""),
		Budget:   "?",
		Employer: "?",
		SavedAt:  b.now(),
	}
	alert, err := b.store.FindAlert(ctx, id)
	switch {
	case err == nil:
		if alert.Title != "" {
			bm.Name = alert.Title
		}
		if alert.URL != "" {
			bm.URL = alert.URL
		}
		bm.Budget = orDefault(alert.Budget, bm.Budget)
		bm.Employer = orDefault(alert.Counterparty, bm.Employer)
	case !errors.Is(err, storage.ErrNotFound):
		b.log.Warn("look up bookmarked project", "project_id", id, "error", err)
	}

	if !b.state.AddBookmark(bm) {
		b.replyText(ctx, chatID, fmt.Sprintf("«%s» is already bookmarked.", html.EscapeString(bm.Name)))
		return "Already saved"
	}
	b.replyText(ctx, chatID, fmt.Sprintf("Saved «%s». Use /bookmarks to see all.", html.EscapeString(bm.Name)))
	return "Saved"
}

func (b *Bot) addReminder(ctx context.Context, chatID int64, arg string) string {
	hours, id, err := ParseReminder(arg)
	if err != nil {
		b.log.Warn("bad reminder callback", "arg", arg, "error", err)
		return "Invalid reminder"
	}

	r := model.Reminder{
		FireAt:   b.now().Add(time.Duration(hours) * time.Hour),
		EntityID: id,
		Name:     model.PlaceholderName(id),
		URL:      marketplace.ProjectURL(id, "", "", ""),
	}
	if bm, ok := b.state.Bookmark(id); ok {
		r.Name, r.URL = bm.Name, bm.URL
	}
	b.state.AddReminder(r)

	b.replyText(ctx, chatID, fmt.Sprintf("I will remind you about «%s» in %d h.", html.EscapeString(r.Name), hours))
	return fmt.Sprintf("Reminder in %d h", hours)
}
