// Package scheduler runs the periodic marketplace poll, the reminder sweep
// and the daily digest check.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fhunt_bot/internal/bot"
	"fhunt_bot/internal/filter"
	"fhunt_bot/internal/metrics"
	"fhunt_bot/internal/model"
	"fhunt_bot/internal/state"
	"fhunt_bot/internal/storage"
)

const (
	pollPageSize  = 25
	seedPageSize  = 50
	digestLimit   = 5
	sweepInterval = 30 * time.Second
)

// Source is the marketplace read API.
type Source interface {
	Projects(ctx context.Context, pageSize int, skills []int) ([]model.Project, error)
	Threads(ctx context.Context) ([]model.Thread, error)
	Feed(ctx context.Context) ([]model.FeedEvent, error)
}

// Sender delivers messages to the chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, m bot.Message) error
}

// Scheduler polls the marketplace and forwards new entities to the chat.
type Scheduler struct {
	source  Source
	sender  Sender
	store   storage.Storage
	state   *state.State
	metrics *metrics.Metrics
	log     *slog.Logger

	chatID int64
	skills []int
	tick   time.Duration
	sweep  time.Duration
	now    func() time.Time

	// seeded is only touched by the Run goroutine.
	seeded bool
}

// New creates a Scheduler that delivers alerts to chatID.
func New(source Source, sender Sender, store storage.Storage, st *state.State, m *metrics.Metrics, log *slog.Logger, chatID int64, skills []int) *Scheduler {
	return &Scheduler{
		source:  source,
		sender:  sender,
		store:   store,
		state:   st,
		metrics: m,
		log:     log,
		chatID:  chatID,
		skills:  skills,
		tick:    5 * time.Minute,
		sweep:   sweepInterval,
		now:     time.Now,
	}
}

// SetTickInterval overrides the default 5-minute poll interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// RunAll runs the poll loop, the reminder sweep and the digest check until
// ctx is cancelled or one of them fails.
func (s *Scheduler) RunAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	g.Go(func() error { return s.RunReminders(ctx) })
	g.Go(func() error { return s.RunDigest(ctx) })
	return g.Wait()
}

// Run polls immediately and then every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.poll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll seeds the seen sets on the first active cycle, so a process that
// starts paused makes no network calls until it is resumed.
func (s *Scheduler) poll(ctx context.Context) {
	if s.state.Paused() {
		s.log.Debug("paused, skipping poll")
		return
	}
	if !s.seeded {
		s.Seed(ctx)
		s.seeded = true
	}
	s.checkAll(ctx)
}

// Seed marks everything currently on the first page of each category as
// seen so that pre-existing items are not reported as new.
func (s *Scheduler) Seed(ctx context.Context) {
	if projects, err := s.source.Projects(ctx, seedPageSize, s.skills); err != nil {
		s.fetchFailed(model.CategoryProject, err)
	} else {
		for _, p := range projects {
			s.state.MarkSeen(model.CategoryProject, p.ID)
		}
	}
	if threads, err := s.source.Threads(ctx); err != nil {
		s.fetchFailed(model.CategoryThread, err)
	} else {
		for _, t := range threads {
			s.state.MarkSeen(model.CategoryThread, t.ID)
		}
	}
	if events, err := s.source.Feed(ctx); err != nil {
		s.fetchFailed(model.CategoryFeed, err)
	} else {
		for _, e := range events {
			s.state.MarkSeen(model.CategoryFeed, e.ID)
		}
	}

	s.log.Info("seeded seen sets",
		"projects", s.state.SeenCount(model.CategoryProject),
		"threads", s.state.SeenCount(model.CategoryThread),
		"feed", s.state.SeenCount(model.CategoryFeed),
	)
}

func (s *Scheduler) checkAll(ctx context.Context) {
	if s.state.Paused() {
		s.log.Debug("paused, skipping poll")
		return
	}

	start := time.Now()
	defer func() { s.metrics.PollDuration.Observe(time.Since(start).Seconds()) }()

	checks := []struct {
		category model.Category
		run      func(context.Context) int
	}{
		{model.CategoryProject, s.checkProjects},
		{model.CategoryThread, s.checkThreads},
		{model.CategoryFeed, s.checkFeed},
	}

	sent := 0
	for _, c := range checks {
		if ctx.Err() != nil {
			return
		}
		sent += s.runCheck(ctx, c.category, c.run)
	}

	if sent > 0 {
		s.log.Info("sent notifications", "count", sent)
	} else {
		s.log.Debug("nothing new")
	}
}

// runCheck isolates one category: a panic is logged and counts as zero
// new items.
func (s *Scheduler) runCheck(ctx context.Context, c model.Category, run func(context.Context) int) (sent int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("check panicked", "category", c, "panic", fmt.Sprint(r))
			sent = 0
		}
	}()
	return run(ctx)
}

func (s *Scheduler) checkProjects(ctx context.Context) int {
	projects, err := s.source.Projects(ctx, pollPageSize, s.skills)
	if err != nil {
		s.fetchFailed(model.CategoryProject, err)
		return 0
	}

	cfg := s.state.Config()
	sent := 0
	for _, p := range projects {
		if !s.state.Observe(model.CategoryProject, p.ID) {
			continue
		}
		if !filter.ShouldSurface(p, cfg) {
			continue
		}
		if s.dispatch(ctx, model.ProjectAlert(model.CategoryProject, p), bot.FormatProject(p, cfg.Keywords)) {
			sent++
		}
	}
	return sent
}

// checkThreads surfaces every thread with unread messages, including ones
// seen on earlier polls.
func (s *Scheduler) checkThreads(ctx context.Context) int {
	threads, err := s.source.Threads(ctx)
	if err != nil {
		s.fetchFailed(model.CategoryThread, err)
		return 0
	}

	sent := 0
	for _, t := range threads {
		s.state.Observe(model.CategoryThread, t.ID)
		if t.UnreadCount <= 0 {
			continue
		}
		alert := model.Alert{
			Kind:         model.CategoryThread,
			EntityID:     t.ID,
			Title:        t.Subject,
			URL:          t.URL,
			Counterparty: t.Sender,
		}
		if s.dispatch(ctx, alert, bot.FormatThread(t)) {
			sent++
		}
	}
	return sent
}

func (s *Scheduler) checkFeed(ctx context.Context) int {
	events, err := s.source.Feed(ctx)
	if err != nil {
		s.fetchFailed(model.CategoryFeed, err)
		return 0
	}

	sent := 0
	for _, e := range events {
		if !s.state.Observe(model.CategoryFeed, e.ID) {
			continue
		}
		alert := model.Alert{Kind: model.CategoryFeed, EntityID: e.ID, Title: e.Type, URL: e.URL}
		if s.dispatch(ctx, alert, bot.FormatFeedEvent(e)) {
			sent++
		}
	}
	return sent
}

// dispatch sends one alert and journals it. Failed sends are not counted.
func (s *Scheduler) dispatch(ctx context.Context, alert model.Alert, msg bot.Message) bool {
	if err := s.sender.Send(ctx, s.chatID, msg); err != nil {
		s.log.Error("send alert", "category", alert.Kind, "entity_id", alert.EntityID, "error", err)
		return false
	}

	alert.SentAt = s.now()
	if err := s.store.RecordAlert(ctx, &alert); err != nil {
		s.log.Error("record alert", "category", alert.Kind, "entity_id", alert.EntityID, "error", err)
	}
	s.metrics.AlertsSent.WithLabelValues(string(alert.Kind)).Inc()
	return true
}

func (s *Scheduler) fetchFailed(c model.Category, err error) {
	s.metrics.FetchErrors.WithLabelValues(string(c)).Inc()
	s.log.Error("fetch failed", "category", c, "error", err)
}

// RunReminders delivers due reminders every sweep interval.
func (s *Scheduler) RunReminders(ctx context.Context) error {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepReminders(ctx)
		}
	}
}

func (s *Scheduler) sweepReminders(ctx context.Context) {
	for _, r := range s.state.TakeDueReminders(s.now()) {
		if err := s.sender.Send(ctx, s.chatID, bot.FormatReminder(r)); err != nil {
			s.log.Error("send reminder", "entity_id", r.EntityID, "error", err)
		}
	}
}

// RunDigest sends the daily digest when its configured time is reached.
func (s *Scheduler) RunDigest(ctx context.Context) error {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.checkDigest(ctx)
		}
	}
}

func (s *Scheduler) checkDigest(ctx context.Context) {
	now := s.now()
	if !s.state.ClaimDigest(now) {
		return
	}

	day := model.DayOf(now)
	counts, err := s.store.CountByDay(ctx, day)
	if err != nil {
		s.log.Error("count alerts for digest", "day", day, "error", err)
	}
	projects, err := s.store.ListAlerts(ctx, model.CategoryProject, day, digestLimit)
	if err != nil {
		s.log.Error("list projects for digest", "day", day, "error", err)
	}

	msg := bot.FormatDigest(bot.DigestView{
		Day:       day,
		Counts:    counts,
		Keywords:  s.state.Config().Keywords,
		Bookmarks: s.state.Bookmarks(),
		Projects:  projects,
	})
	if err := s.sender.Send(ctx, s.chatID, msg); err != nil {
		s.state.ReleaseDigest(day)
		s.log.Error("send digest, will retry", "day", day, "error", err)
		return
	}
	s.log.Info("digest sent", "day", day)
}
