// Package audit fetches pages the way a search crawler does and reports the
// SEO tags it would index.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/cambutal-seo/internal/policy/ratelimit"
	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

// DefaultUserAgent identifies audit requests as Googlebot so the page router
// serves its crawler branch.
const DefaultUserAgent = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

// Config controls audit fetches.
type Config struct {
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	ShellThreshold    int           `mapstructure:"shell_threshold"`
}

// Result is what a crawler would see at one URL.
type Result struct {
	URL            string        `json:"url"`
	StatusCode     int           `json:"statusCode"`
	ContentType    string        `json:"contentType"`
	CacheControl   string        `json:"cacheControl"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Canonical      string        `json:"canonical"`
	Robots         string        `json:"robots"`
	OGTitle        string        `json:"ogTitle"`
	OGImage        string        `json:"ogImage"`
	H1             string        `json:"h1"`
	JSONLDBlocks   int           `json:"jsonLdBlocks"`
	Bytes          int           `json:"bytes"`
	LooksLikeShell bool          `json:"looksLikeShell"`
	Duration       time.Duration `json:"duration"`
}

// Auditor runs crawler-view fetches, rate limited per host.
type Auditor struct {
	cfg     Config
	base    *colly.Collector
	limiter *ratelimit.Limiter
	shell   *ShellDetector
}

// New builds an Auditor.
func New(cfg Config) *Auditor {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.ParseHTTPErrorResponse = true
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	})

	return &Auditor{
		cfg:     cfg,
		base:    c,
		limiter: ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.RequestsPerSecond, Burst: cfg.Burst}),
		shell:   NewShellDetector(cfg.ShellThreshold),
	}
}

// Inspect fetches url with the crawler user agent and extracts its SEO tags.
func (a *Auditor) Inspect(ctx context.Context, url string) (Result, error) {
	if err := a.limiter.Wait(ctx, url); err != nil {
		return Result{}, fmt.Errorf("audit rate limit: %w", err)
	}

	var (
		result   Result
		parseErr error
		fetchErr error
	)
	start := time.Now()
	collector := a.base.Clone()
	collector.UserAgent = a.cfg.UserAgent
	collector.SetRequestTimeout(a.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = Result{
			URL:          r.Request.URL.String(),
			StatusCode:   r.StatusCode,
			ContentType:  r.Headers.Get("Content-Type"),
			CacheControl: r.Headers.Get("Cache-Control"),
			Bytes:        len(r.Body),
		}
		parseErr = extract(r.Body, &result)
		result.LooksLikeShell = a.shell.LooksLikeShell(r.Body)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("audit canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return Result{}, fmt.Errorf("audit visit failed: %w", err)
		}
	}
	if fetchErr != nil {
		return Result{}, fmt.Errorf("audit response failed: %w", fetchErr)
	}
	if parseErr != nil {
		return Result{}, parseErr
	}
	result.Duration = time.Since(start)
	telemetry.ObserveAuditFetch(result.StatusCode)
	return result, nil
}

func extract(body []byte, out *Result) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	out.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	out.Description = metaContent(doc, `meta[name="description"]`)
	out.Robots = metaContent(doc, `meta[name="robots"]`)
	out.OGTitle = metaContent(doc, `meta[property="og:title"]`)
	out.OGImage = metaContent(doc, `meta[property="og:image"]`)
	out.Canonical, _ = doc.Find(`link[rel="canonical"]`).First().Attr("href")
	out.H1 = strings.TrimSpace(doc.Find("h1").First().Text())
	out.JSONLDBlocks = doc.Find(`script[type="application/ld+json"]`).Length()
	return nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}
