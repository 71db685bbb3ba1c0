// Package website scrapes a business's own site for a contact email and
// social profile links.
package website

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

var emailPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+`)

// Result holds whatever contact data was found. Empty fields mean absent.
type Result struct {
	Email   string
	Socials crawler.Socials
}

// Scraper fetches and parses business websites.
type Scraper struct {
	fetcher crawler.RetryFetcher
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Scraper.
func New(fetcher crawler.RetryFetcher, timeout time.Duration, logger *zap.Logger) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{fetcher: fetcher, timeout: timeout, logger: logger.Named("website")}
}

// Scrape returns the contact data found at rawURL. Missing or non-HTTP URLs,
// failed fetches, and unparsable pages all yield an empty Result.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) Result {
	if rawURL == "" || !strings.Contains(rawURL, "http") {
		return Result{}
	}
	resp, ok := s.fetcher.Fetch(ctx, crawler.FetchRequest{URL: rawURL, Timeout: s.timeout}, nil)
	if !ok {
		s.logger.Warn("website unreachable", zap.String("url", rawURL))
		return Result{}
	}
	result, err := Parse(resp.Body)
	if err != nil {
		s.logger.Warn("failed to parse website", zap.String("url", rawURL), zap.Error(err))
		return Result{}
	}
	return result
}

// Parse extracts the first email-like text match and the first link per
// social network from an HTML document.
func Parse(body []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	var result Result
	result.Email = firstEmail(doc.Nodes)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.ToLower(a.AttrOr("href", ""))
		switch {
		case strings.Contains(href, "instagram.com") && result.Socials.Instagram == "":
			result.Socials.Instagram = href
		case strings.Contains(href, "facebook.com") && result.Socials.Facebook == "":
			result.Socials.Facebook = href
		case strings.Contains(href, "tiktok.com") && result.Socials.TikTok == "":
			result.Socials.TikTok = href
		case strings.Contains(href, "linkedin.com") && result.Socials.LinkedIn == "":
			result.Socials.LinkedIn = href
		}
	})
	return result, nil
}

// firstEmail walks text nodes in document order.
func firstEmail(nodes []*html.Node) string {
	for _, n := range nodes {
		if n.Type == html.TextNode {
			if m := emailPattern.FindString(n.Data); m != "" {
				return m
			}
		}
		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		if m := firstEmail(children); m != "" {
			return m
		}
	}
	return ""
}
