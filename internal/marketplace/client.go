// Package marketplace is a read-only client for the Freelancehunt v2 REST API.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fhunt_bot/internal/model"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.freelancehunt.com/v2"

const (
	siteURL    = "https://freelancehunt.com"
	mailboxURL = siteURL + "/mailbox/"
	maxBody    = 5 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Client fetches projects, threads, feed events and the profile.
type Client struct {
	baseURL string
	token   string
	client  HTTPClient
	timeout time.Duration
}

// New creates a Client authenticated with a bearer token.
func New(baseURL, token string, client HTTPClient) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
		timeout: 15 * time.Second,
	}
}

// Projects returns the first page of the public project list.
func (c *Client) Projects(ctx context.Context, pageSize int, skills []int) ([]model.Project, error) {
	q := url.Values{}
	q.Set("page[number]", "1")
	q.Set("page[size]", strconv.Itoa(pageSize))
	if len(skills) > 0 {
		ids := make([]string, len(skills))
		for i, s := range skills {
			ids[i] = strconv.Itoa(s)
		}
		q.Set("skills", strings.Join(ids, ","))
	}

	var resp listResponse
	if err := c.get(ctx, "/projects", q, &resp); err != nil {
		return nil, err
	}

	items := decodeItems[projectAttributes](resp.Data)
	projects := make([]model.Project, 0, len(items))
	for _, r := range items {
		projects = append(projects, toProject(r))
	}
	return projects, nil
}

// Threads returns the user's message threads.
func (c *Client) Threads(ctx context.Context) ([]model.Thread, error) {
	var resp listResponse
	if err := c.get(ctx, "/my/threads", nil, &resp); err != nil {
		return nil, err
	}

	items := decodeItems[threadAttributes](resp.Data)
	threads := make([]model.Thread, 0, len(items))
	for _, r := range items {
		t := model.Thread{
			ID:          model.EntityID(r.ID),
			Subject:     r.Attributes.Subject,
			UnreadCount: int(r.Attributes.UnreadCount),
			URL:         string(r.Links.Self),
		}
		if len(r.Attributes.Participants) > 0 {
			t.Sender = r.Attributes.Participants[0].Login
		}
		if t.URL == "" {
			t.URL = mailboxURL
		}
		threads = append(threads, t)
	}
	return threads, nil
}

// Feed returns the user's notification feed.
func (c *Client) Feed(ctx context.Context) ([]model.FeedEvent, error) {
	var resp listResponse
	if err := c.get(ctx, "/my/feed", nil, &resp); err != nil {
		return nil, err
	}

	items := decodeItems[feedAttributes](resp.Data)
	events := make([]model.FeedEvent, 0, len(items))
	for _, r := range items {
		text := r.Attributes.Text
		if text == "" {
			text = r.Attributes.Message
		}
		events = append(events, model.FeedEvent{
			ID:   model.EntityID(r.ID),
			Type: r.Attributes.Type,
			Text: strings.TrimSpace(text),
			URL:  string(r.Links.Self),
		})
	}
	return events, nil
}

// Profile returns the authenticated account.
func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var resp itemResponse[profileAttributes]
	if err := c.get(ctx, "/my/profile", nil, &resp); err != nil {
		return nil, err
	}
	a := resp.Data.Attributes
	p := &model.Profile{
		Login:    a.Login,
		Rating:   float64(a.Rating),
		Currency: "UAH",
	}
	if a.Balance != nil {
		p.Balance = float64(a.Balance.Amount)
		if a.Balance.Currency != "" {
			p.Currency = a.Balance.Currency
		}
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "uk")
	req.Header.Set("User-Agent", "FreelancehuntNotifyBot/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: snippet}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func toProject(r resource[projectAttributes]) model.Project {
	a := r.Attributes
	p := model.Project{
		ID:          model.EntityID(r.ID),
		Name:        a.Name,
		Description: strings.TrimSpace(a.Description),
		IsSafe:      a.IsSafe,
	}
	if a.Budget != nil {
		p.Budget = float64(a.Budget.Amount)
		p.Currency = a.Budget.Currency
	}
	if a.Employer != nil {
		p.EmployerLogin = a.Employer.Login
		p.EmployerRating = float64(a.Employer.Rating)
		p.EmployerReviews = int(a.Employer.ReviewsCount)
	}
	for _, s := range a.Skills {
		if s.Name != "" {
			p.Skills = append(p.Skills, s.Name)
		}
	}
	p.URL = ProjectURL(p.ID, a.Name, a.URL, string(r.Links.Self))
	return p
}

// ProjectURL resolves the public site link of a project. The API link is
// only used when it already points at the site.
func ProjectURL(id model.EntityID, name, attrURL, selfHref string) string {
	if attrURL != "" && strings.Contains(attrURL, "freelancehunt.com/project") {
		return attrURL
	}
	if selfHref != "" && strings.Contains(selfHref, "freelancehunt.com/project") && !strings.Contains(selfHref, "api.") {
		return selfHref
	}
	return fmt.Sprintf("%s/project/%s/%s.html", siteURL, slugify(name), id)
}

// EmployerURL returns the public profile link of an employer.
func EmployerURL(login string) string {
	return siteURL + "/employer/" + url.PathEscape(login) + ".html"
}

// FreelancerURL returns the public profile link of a freelancer.
func FreelancerURL(login string) string {
	return siteURL + "/freelancer/" + url.PathEscape(login) + ".html"
}

func slugify(name string) string {
	if name == "" {
		name = "project"
	}
	slug := strings.Map(func(r rune) rune {
		if strings.ContainsRune(" /\\:?#[]@!$&'()*+,;=", r) {
			return '-'
		}
		return r
	}, strings.ToLower(name))
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if r := []rune(slug); len(r) > 60 {
		slug = string(r[:60])
	}
	return slug
}
