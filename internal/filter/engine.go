// Package filter implements the project matching rules.
package filter

import (
	"strings"

	"fhunt_bot/internal/model"
)

// SearchLimit is the number of matches returned by a manual search.
const SearchLimit = 5

// ShouldSurface reports whether a freshly fetched project passes the
// configured filters. Checks short-circuit in order: blacklisted employer,
// budget floor, keyword allow-list.
func ShouldSurface(p model.Project, cfg model.FilterConfig) bool {
	if cfg.IsBlocked(p.EmployerLogin) {
		return false
	}
	if cfg.MinBudget > 0 && p.Budget < float64(cfg.MinBudget) {
		return false
	}
	return MatchesKeywords(p, cfg.Keywords)
}

// MatchesKeywords reports whether the title or description contains at
// least one keyword. An empty keyword list matches everything.
func MatchesKeywords(p model.Project, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	text := haystack(p)
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Search returns up to limit projects whose title or description contains
// term. It ignores the persistent filter configuration.
func Search(projects []model.Project, term string, limit int) []model.Project {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var out []model.Project
	for _, p := range projects {
		if len(out) >= limit {
			break
		}
		if strings.Contains(haystack(p), term) {
			out = append(out, p)
		}
	}
	return out
}

func haystack(p model.Project) string {
	return strings.ToLower(p.Name + " " + p.Description)
}
