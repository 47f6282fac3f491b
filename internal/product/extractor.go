// Package product turns a product page URL into form-ready material:
// readable page text distilled into candidate selling points for the
// generation request.
package product

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const (
	// maxBodySize is the maximum HTTP response body size (5MB).
	maxBodySize = 5 * 1024 * 1024
	// minTextLength rejects login walls, cookie walls, and empty pages.
	minTextLength = 40
	// maxSellingPoints caps the candidate list, matching the form's
	// "up to 6 selling points" limit.
	maxSellingPoints = 6
	// maxPointRunes keeps each candidate short enough for the form.
	maxPointRunes = 120
)

// PageContent is the distilled result for one product page.
type PageContent struct {
	Title         string   `json:"title"`
	Text          string   `json:"text"`
	SellingPoints []string `json:"selling_points"`
	WordCount     int      `json:"word_count"`
}

// Extractor abstracts product page extraction.
type Extractor interface {
	Extract(ctx context.Context, url string) (*PageContent, error)
}

// PageExtractor fetches pages and extracts readable content using
// go-readability.
type PageExtractor struct {
	client *http.Client
}

var _ Extractor = (*PageExtractor)(nil)

// NewPageExtractor creates an extractor with the given fetch timeout.
func NewPageExtractor(timeout time.Duration) *PageExtractor {
	return &PageExtractor{client: &http.Client{Timeout: timeout}}
}

// Extract fetches the URL and distills readable content into candidate
// selling points.
func (e *PageExtractor) Extract(ctx context.Context, url string) (*PageContent, error) {
	parsedURL, err := nurl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Use a realistic browser User-Agent to avoid being blocked by shops.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := normalizeText(article.TextContent)
	if utf8.RuneCountInString(text) < minTextLength {
		return nil, fmt.Errorf("extracted content too short (%d chars), possibly blocked or empty page", utf8.RuneCountInString(text))
	}

	return &PageContent{
		Title:         article.Title,
		Text:          text,
		SellingPoints: distillSellingPoints(text),
		WordCount:     len(strings.Fields(text)),
	}, nil
}

// distillSellingPoints derives up to maxSellingPoints short candidate
// lines from readable page text: one per paragraph-leading sentence,
// trimmed to form length.
func distillSellingPoints(text string) []string {
	var points []string
	for _, block := range strings.Split(text, "\n") {
		block = strings.TrimSpace(block)
		if utf8.RuneCountInString(block) < 10 {
			continue
		}
		points = append(points, truncateRunes(firstSentence(block), maxPointRunes))
		if len(points) == maxSellingPoints {
			break
		}
	}
	return points
}

var sentenceEnd = regexp.MustCompile(`[.!?。！？]`)

func firstSentence(s string) string {
	if loc := sentenceEnd.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[:loc[1]])
	}
	return s
}

func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "…"
}

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
