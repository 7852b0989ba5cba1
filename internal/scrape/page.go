package scrape

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"herald/internal/campaign"
	"herald/internal/services"
)

// speakerSelectors are tried in order against a conference page. Conference
// sites are unstandardized; these cover the common markup patterns for
// speaker grids.
var speakerSelectors = []string{
	".speaker",
	".speaker-card",
	"[class*=speaker] li",
	".presenter",
}

// HTMLFetcher extracts participants directly from a conference page using
// CSS heuristics. Sites behind a login are fetched with basic auth when
// credentials are supplied.
type HTMLFetcher struct {
	httpClient *http.Client
}

// NewHTMLFetcher builds a page fetcher with the given request timeout.
func NewHTMLFetcher(timeout time.Duration) *HTMLFetcher {
	return &HTMLFetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchParticipants implements PageFetcher.
func (f *HTMLFetcher) FetchParticipants(ctx context.Context, pageURL string, credentials *campaign.Credentials) ([]campaign.Participant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "scrape", "fetch page", "build request", err)
	}
	req.Header.Set("User-Agent", "herald/0.1.0")
	if credentials != nil && credentials.Username != "" {
		req.SetBasicAuth(credentials.Username, credentials.Password)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "scrape", "fetch page", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternal, "scrape", "fetch page", "status "+resp.Status, nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "scrape", "fetch page", "parse html", err)
	}

	return extractFromDocument(doc, domainFromURL(pageURL)), nil
}

func extractFromDocument(doc *goquery.Document, domain string) []campaign.Participant {
	var participants []campaign.Participant
	seen := make(map[string]struct{})

	for _, selector := range speakerSelectors {
		doc.Find(selector).Each(func(_ int, selection *goquery.Selection) {
			name := firstText(selection, "h2, h3, h4, .name, .speaker-name")
			if name == "" || isNavigationTitle(name) {
				return
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}

			role := firstText(selection, ".role, .title, .job-title, p")
			if len(role) >= maxRoleLength {
				role = ""
			}
			company := firstText(selection, ".company, .organization")
			if company == "" {
				company = domain
			}

			participant := campaign.Participant{
				Name:    name,
				Role:    role,
				Company: company,
			}
			if href, ok := selection.Find("a[href*=linkedin]").Attr("href"); ok {
				participant.ProfileURL = strings.TrimSpace(href)
			}
			participants = append(participants, participant)
		})
		if len(participants) > 0 {
			break
		}
	}
	return participants
}

func firstText(selection *goquery.Selection, selector string) string {
	return strings.TrimSpace(selection.Find(selector).First().Text())
}
