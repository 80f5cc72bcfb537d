package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/beingthebridges/grantpal/internal/errs"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageFetcher downloads a remote page and reduces it to visible text,
// one line per text node.
type PageFetcher struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBodySize int
}

func NewPageFetcher(timeout time.Duration, userAgent string) *PageFetcher {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &PageFetcher{
		Timeout:     timeout,
		UserAgent:   userAgent,
		MaxBodySize: 10 * 1024 * 1024,
	}
}

// FetchText fetches rawURL and returns the page's visible text joined by
// newlines. Network failures and non-2xx statuses propagate as errors.
func (f *PageFetcher) FetchText(rawURL string) (string, error) {
	collector := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(f.MaxBodySize),
		colly.DetectCharset(),
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(f.Timeout)

	var body []byte
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return "", errs.Upstream(err, "failed to fetch %s", rawURL)
	}
	collector.Wait()

	if fetchErr != nil {
		return "", errs.Upstream(fetchErr, "failed to fetch %s", rawURL)
	}
	if len(body) == 0 {
		return "", errs.Upstream(fmt.Errorf("empty body"), "failed to fetch %s", rawURL)
	}

	return HTMLToText(string(body))
}

// HTMLToText sanitizes markup and returns its visible text, one line per
// text node.
func HTMLToText(markup string) (string, error) {
	sanitized := bluemonday.UGCPolicy().Sanitize(markup)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err != nil {
		return "", errs.Wrap(errs.KindExtraction, err, "failed to parse page HTML")
	}
	doc.Find("script, style, noscript, template").Remove()

	var lines []string
	for _, node := range doc.Find("body").Nodes {
		collectTextLines(node, &lines)
	}
	return strings.Join(lines, "\n"), nil
}

func collectTextLines(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			*lines = append(*lines, s)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectTextLines(child, lines)
	}
}
