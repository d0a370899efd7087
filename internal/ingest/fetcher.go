package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Page is a fetched and cleaned documentation page.
type Page struct {
	URL      string
	Title    string
	Text     string
	Headings []string
}

// Fetcher retrieves documentation pages and strips them down to readable
// text for indexing.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxSizeMB  int
}

func NewFetcher(timeout time.Duration, userAgent string, maxSizeMB int) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxSizeMB: maxSizeMB,
	}
}

// Fetch downloads a page and extracts its article text. Readability does the
// main-content extraction; goquery supplies the title and headings for chunk
// labelling.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	html, err := f.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article from %s: %w", pageURL, err)
	}

	title, headings := f.parseOutline(html)
	if title == "" {
		title = article.Title
	}

	return &Page{
		URL:      pageURL,
		Title:    title,
		Text:     strings.TrimSpace(article.TextContent),
		Headings: headings,
	}, nil
}

func (f *Fetcher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}

	maxBytes := int64(f.maxSizeMB * 1024 * 1024)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) >= maxBytes {
		return "", fmt.Errorf("content exceeds size limit of %dMB", f.maxSizeMB)
	}
	return string(body), nil
}

// parseOutline pulls the title and section headings out of the raw HTML.
func (f *Fetcher) parseOutline(html string) (string, []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, aside, footer, header, iframe, noscript").Remove()

	var headings []string
	doc.Find("h1, h2, h3, h4").Each(func(i int, s *goquery.Selection) {
		if h := strings.TrimSpace(s.Text()); h != "" {
			headings = append(headings, h)
		}
	})
	return title, headings
}
