// Package crawler fetches a single page, checks robots.txt, extracts the
// main content with readability, and falls back to a headless render when
// the static HTML carries too little text.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"github.com/niyahq/niya-backend/internal/parsers"
	"github.com/niyahq/niya-backend/internal/platform/logger"
)

var (
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	ErrTooLittleText    = errors.New("page has too little extractable text")
	ErrUnsupportedURL   = errors.New("unsupported url")
)

type Config struct {
	UserAgent        string
	Timeout          time.Duration
	MinTextChars     int
	EnableJSFallback bool
	MaxBodyBytes     int64
}

func DefaultConfig() Config {
	return Config{
		UserAgent:        "NiyaBot/1.0 (+https://niya.chat/bot)",
		Timeout:          20 * time.Second,
		MinTextChars:     200,
		EnableJSFallback: true,
		MaxBodyBytes:     10 << 20,
	}
}

type Result struct {
	URL          string // canonical form of the fetched URL
	Title        string
	Document     *parsers.Document
	Rendered     bool   // true when the headless fallback produced the content
	ETag         string // validator headers from the static response, if sent
	LastModified string
}

type Crawler struct {
	cfg    Config
	client *http.Client
	log    *logger.Logger
}

func New(cfg Config, baseLog *logger.Logger) *Crawler {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = def.MinTextChars
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	return &Crawler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    baseLog.With("service", "Crawler"),
	}
}

// Canonicalize normalizes a URL for dedup and storage: scheme and host are
// lowercased, the fragment is dropped, and default ports are removed.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// Fetch downloads and extracts one page. The caller owns persistence; the
// crawler only reports what the page says now.
func (c *Crawler) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	canonical, err := Canonicalize(rawURL)
	if err != nil {
		return nil, err
	}
	target, _ := url.Parse(canonical)

	allowed, err := c.robotsAllowed(ctx, target)
	if err != nil {
		c.log.Warn("robots.txt check failed, proceeding", "url", canonical, "error", err)
	} else if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, canonical)
	}

	page, err := c.download(ctx, canonical)
	if err != nil {
		return nil, err
	}

	doc, title, err := c.extract(page.html, target)
	rendered := false
	if (err != nil || textLen(doc) < c.cfg.MinTextChars) && c.cfg.EnableJSFallback {
		c.log.Debug("static extraction thin, trying headless render", "url", canonical)
		renderedHTML, renderErr := c.renderWithBrowser(ctx, canonical)
		if renderErr != nil {
			c.log.Warn("headless render failed", "url", canonical, "error", renderErr)
		} else {
			if renderedDoc, renderedTitle, exErr := c.extract(renderedHTML, target); exErr == nil && textLen(renderedDoc) > textLen(doc) {
				doc, title = renderedDoc, renderedTitle
				rendered = true
				err = nil
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if textLen(doc) < c.cfg.MinTextChars {
		return nil, fmt.Errorf("%w: %d chars", ErrTooLittleText, textLen(doc))
	}

	return &Result{
		URL:          canonical,
		Title:        title,
		Document:     doc,
		Rendered:     rendered,
		ETag:         page.etag,
		LastModified: page.lastModified,
	}, nil
}

// page is one static download plus the validator headers the server sent,
// kept for conditional re-crawls.
type page struct {
	html         string
	etag         string
	lastModified string
}

func (c *Crawler) robotsAllowed(ctx context.Context, target *url.URL) (bool, error) {
	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return true, err
	}
	return robots.TestAgent(target.RequestURI(), c.cfg.UserAgent), nil
}

func (c *Crawler) download(ctx context.Context, pageURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.Contains(contentType, "xml") {
		return nil, fmt.Errorf("%w: content type %q", ErrUnsupportedURL, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}
	return &page{
		html:         string(body),
		etag:         strings.TrimSpace(resp.Header.Get("ETag")),
		lastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
	}, nil
}

func (c *Crawler) renderWithBrowser(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(c.cfg.UserAgent),
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, c.cfg.Timeout)
	defer cancelTimeout()

	var renderedHTML string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &renderedHTML),
	)
	if err != nil {
		return "", err
	}
	return renderedHTML, nil
}

// extract runs readability on raw HTML and rebuilds heading-aware sections
// from the cleaned article markup.
func (c *Crawler) extract(pageHTML string, pageURL *url.URL) (*parsers.Document, string, error) {
	article, err := readability.FromReader(strings.NewReader(pageHTML), pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("readability extraction: %w", err)
	}
	sections := htmlToSections(article.Content)
	if len(sections) == 0 {
		text := strings.TrimSpace(article.TextContent)
		if text == "" {
			return nil, "", fmt.Errorf("readability produced no text")
		}
		sections = []parsers.Section{{Content: text}}
	}
	title := strings.TrimSpace(article.Title)
	return &parsers.Document{Title: title, Sections: sections}, title, nil
}

func textLen(doc *parsers.Document) int {
	if doc == nil {
		return 0
	}
	total := 0
	for _, sec := range doc.Sections {
		total += len(sec.Content)
	}
	return total
}

// htmlToSections walks cleaned article HTML and groups block text under the
// nearest h1-h4 heading.
func htmlToSections(content string) []parsers.Section {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var sections []parsers.Section
	var current strings.Builder
	var heading string

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" || heading != "" {
			sections = append(sections, parsers.Section{Heading: heading, Content: text})
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "h1", "h2", "h3", "h4":
				flush()
				heading = strings.TrimSpace(nodeText(n))
				return
			case "p", "li", "td", "th", "pre", "blockquote", "figcaption":
				text := strings.TrimSpace(nodeText(n))
				if text != "" {
					if current.Len() > 0 {
						current.WriteString("\n")
					}
					current.WriteString(text)
				}
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	flush()

	// Drop heading-only sections with no content under them.
	out := sections[:0]
	for _, sec := range sections {
		if sec.Content != "" {
			out = append(out, sec)
		}
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
