package scrape

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"herald/internal/campaign"
	"herald/internal/services/search"
)

// titleSeparators are tried in order against a search result title like
// "Ada Park - CTO - Looply" or "Sam Ortiz | Widget Labs".
var titleSeparators = []string{" - ", " | ", ": "}

// navWords mark result titles that are site navigation rather than people.
var navWords = []string{"home", "about", "contact", "schedule", "privacy"}

const maxRoleLength = 50

// nameKey builds the dedupe key for a scraped name. Names arrive from search
// titles and page markup with mixed casing and composed/decomposed accents,
// so the key is Unicode-normalized and case-folded. Casers are stateful, so
// one is built per call.
func nameKey(name string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(name)))
}

// domainFromURL extracts the host part of a conference URL for query
// building and as the fallback company.
func domainFromURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if idx := strings.Index(trimmed, "//"); idx >= 0 {
		trimmed = trimmed[idx+2:]
	}
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

func dedupeByLink(results []search.Result) []search.Result {
	seen := make(map[string]struct{}, len(results))
	unique := make([]search.Result, 0, len(results))
	for _, result := range results {
		link := strings.TrimSpace(result.Link)
		if link == "" {
			unique = append(unique, result)
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		unique = append(unique, result)
	}
	return unique
}

// participantsFromResults mines search result titles for person names. A
// title is split on the first separator that matches; the left part is the
// candidate name, the right part the candidate role. Navigation pages and
// duplicate names are skipped, and overlong roles are dropped as noise.
func participantsFromResults(results []search.Result, domain string, limit int) []campaign.Participant {
	participants := make([]campaign.Participant, 0, limit)
	seenNames := make(map[string]struct{})

	for _, result := range results {
		if len(participants) >= limit {
			break
		}
		for _, separator := range titleSeparators {
			if !strings.Contains(result.Title, separator) {
				continue
			}
			parts := strings.SplitN(result.Title, separator, 2)
			if len(parts) < 2 {
				continue
			}
			name := strings.TrimSpace(parts[0])
			role := strings.TrimSpace(parts[1])

			if name == "" || isNavigationTitle(name) {
				continue
			}
			key := nameKey(name)
			if _, dup := seenNames[key]; dup {
				continue
			}
			seenNames[key] = struct{}{}

			if len(role) >= maxRoleLength {
				role = ""
			}
			participants = append(participants, campaign.Participant{
				Name:    name,
				Role:    role,
				Company: domain,
				Notes:   truncate(result.Snippet, 100),
			})
			break
		}
	}
	return participants
}

func isNavigationTitle(name string) bool {
	lower := strings.ToLower(name)
	for _, word := range navWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
