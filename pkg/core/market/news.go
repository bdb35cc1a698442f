package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// NewsItem is a headline normalized from either of Yahoo's news shapes.
type NewsItem struct {
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// rawNews covers the flat shape and the newer one nested under "content".
type rawNews struct {
	Title               string          `json:"title"`
	Publisher           string          `json:"publisher"`
	Link                string          `json:"link"`
	Summary             string          `json:"summary"`
	ProviderPublishTime json.RawMessage `json:"providerPublishTime"`

	Content *struct {
		Title    string          `json:"title"`
		Summary  string          `json:"summary"`
		PubDate  json.RawMessage `json:"pubDate"`
		Provider struct {
			DisplayName string `json:"displayName"`
		} `json:"provider"`
		CanonicalURL struct {
			URL string `json:"url"`
		} `json:"canonicalUrl"`
		ClickThroughURL struct {
			URL string `json:"url"`
		} `json:"clickThroughUrl"`
	} `json:"content"`
}

type searchResponse struct {
	News []rawNews `json:"news"`
}

// FetchNews returns recent headlines for ticker. Items without a title are
// dropped.
func (c *Client) FetchNews(ctx context.Context, ticker string, limit int) ([]NewsItem, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var resp searchResponse
	q := url.Values{"q": {t}, "newsCount": {strconv.Itoa(limit)}, "quotesCount": {"0"}}
	if err := c.getJSON(ctx, "/v1/finance/search", q, &resp); err != nil {
		return nil, fmt.Errorf("news %s: %w", t, err)
	}

	items := make([]NewsItem, 0, len(resp.News))
	for _, raw := range resp.News {
		item := normalizeNews(raw)
		if item.Title == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func normalizeNews(raw rawNews) NewsItem {
	item := NewsItem{
		Title:       raw.Title,
		Publisher:   raw.Publisher,
		Link:        raw.Link,
		Summary:     raw.Summary,
		PublishedAt: parsePublishTime(raw.ProviderPublishTime),
	}

	if c := raw.Content; c != nil {
		if item.Title == "" {
			item.Title = c.Title
		}
		if item.Publisher == "" {
			item.Publisher = c.Provider.DisplayName
		}
		if item.Link == "" {
			item.Link = c.CanonicalURL.URL
		}
		if item.Link == "" {
			item.Link = c.ClickThroughURL.URL
		}
		if item.Summary == "" {
			item.Summary = c.Summary
		}
		if item.PublishedAt.IsZero() {
			item.PublishedAt = parsePublishTime(c.PubDate)
		}
	}

	item.Title = strings.TrimSpace(item.Title)
	item.Summary = cleanSummary(item.Summary)
	return item
}

// parsePublishTime accepts unix seconds or an RFC 3339 string.
func parsePublishTime(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}

	var secs int64
	if err := json.Unmarshal(raw, &secs); err == nil {
		return time.Unix(secs, 0).UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC()
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0).UTC()
		}
	}
	return time.Time{}
}

// cleanSummary strips HTML from a summary and collapses whitespace.
func cleanSummary(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
