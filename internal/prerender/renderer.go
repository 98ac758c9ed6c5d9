package prerender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// Renderer produces the application markup for one route. The markup replaces
// the template placeholder.
type Renderer interface {
	Render(ctx context.Context, route string) (string, error)
	Close() error
}

// LoadingShell is the static markup used whenever real rendering is unavailable.
const LoadingShell = `<div class="app-loading" role="status" aria-live="polite">` +
	`<div class="app-loading__spinner"></div>` +
	`<p class="app-loading__label">Loading...</p>` +
	`</div>`

// ShellRenderer renders every route as the loading shell.
type ShellRenderer struct{}

// Render returns LoadingShell.
func (ShellRenderer) Render(context.Context, string) (string, error) {
	return LoadingShell, nil
}

// Close is a no-op.
func (ShellRenderer) Close() error { return nil }

// ChromeConfig controls the headless renderer.
type ChromeConfig struct {
	ExecPath      string
	UserAgent     string
	MountSelector string
	Timeout       time.Duration
	Settle        time.Duration
}

func (c ChromeConfig) withDefaults() ChromeConfig {
	if c.MountSelector == "" {
		c.MountSelector = "#root"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Settle < 0 {
		c.Settle = 0
	}
	return c
}

// ChromeRenderer loads each route of the client build in headless Chrome and
// captures the markup the application mounted.
type ChromeRenderer struct {
	cfg           ChromeConfig
	baseURL       string
	server        *http.Server
	allocCancel   context.CancelFunc
	browser       context.Context
	browserCancel context.CancelFunc
}

// NewChromeRenderer serves clientDir on a loopback listener and starts a
// browser. Any failure leaves nothing running.
func NewChromeRenderer(ctx context.Context, clientDir, templateName string, cfg ChromeConfig) (*ChromeRenderer, error) {
	cfg = cfg.withDefaults()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler:           spaHandler(clientDir, templateName),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browser, browserCancel := chromedp.NewContext(allocCtx)

	r := &ChromeRenderer{
		cfg:           cfg,
		baseURL:       "http://" + ln.Addr().String(),
		server:        srv,
		allocCancel:   allocCancel,
		browser:       browser,
		browserCancel: browserCancel,
	}

	// Chrome lives as long as the context of the first Run, so startup is
	// bounded by a timer rather than a context deadline.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browser) }()
	timer := time.NewTimer(cfg.Timeout)
	defer timer.Stop()

	select {
	case err := <-started:
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
		return r, nil
	case <-timer.C:
		_ = r.Close()
		return nil, fmt.Errorf("start browser: timed out after %s", cfg.Timeout)
	case <-ctx.Done():
		_ = r.Close()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}
}

// BaseURL is the loopback origin serving the client build.
func (r *ChromeRenderer) BaseURL() string {
	return r.baseURL
}

// Render opens route in a new tab and returns the inner HTML of the mount
// element once the application has put something in it.
func (r *ChromeRenderer) Render(ctx context.Context, route string) (string, error) {
	tab, tabCancel := chromedp.NewContext(r.browser)
	defer tabCancel()
	tab, cancel := context.WithTimeout(tab, r.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var markup string
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if r.cfg.UserAgent == "" {
				return nil
			}
			if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
			return nil
		}),
		chromedp.Navigate(r.baseURL + route),
		chromedp.WaitReady(r.cfg.MountSelector+" > *", chromedp.ByQuery),
	}
	if r.cfg.Settle > 0 {
		actions = append(actions, chromedp.Sleep(r.cfg.Settle))
	}
	actions = append(actions, chromedp.InnerHTML(r.cfg.MountSelector, &markup, chromedp.ByQuery))
	if err := chromedp.Run(tab, actions...); err != nil {
		return "", fmt.Errorf("render %s: %w", route, err)
	}
	if strings.TrimSpace(markup) == "" {
		return "", fmt.Errorf("render %s: empty mount element", route)
	}
	return markup, nil
}

// Close stops the browser and the loopback server.
func (r *ChromeRenderer) Close() error {
	r.browserCancel()
	r.allocCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown build server: %w", err)
	}
	return nil
}

// spaHandler serves static assets from dir and answers every other path with
// the application template so client-side routing takes over.
func spaHandler(dir, templateName string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, templateName)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		clean := path.Clean("/" + req.URL.Path)
		if clean != "/" {
			info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean)))
			if err == nil && !info.IsDir() {
				files.ServeHTTP(w, req)
				return
			}
		}
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, req, index)
	})
}
