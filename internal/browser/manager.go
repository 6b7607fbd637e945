// Package browser owns the Chrome session the agent and the human share.
// Everything goes through one CDP context so a manual login in the visible
// window is immediately usable by the agent.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromedp/chromedp"
)

type Options struct {
	ExecPath    string
	Headless    bool
	Width       int
	Height      int
	UserDataDir string
}

type Manager struct {
	// Ctx is the tab context all CDP actions run against.
	Ctx context.Context

	cancels []context.CancelFunc
}

func NewManager(parent context.Context, opts Options) (*Manager, error) {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	if opts.UserDataDir == "" {
		wd, _ := os.Getwd()
		opts.UserDataDir = filepath.Join(wd, ".cartagent_profile")
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(opts.UserDataDir),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	m := &Manager{
		Ctx:     tabCtx,
		cancels: []context.CancelFunc{cancelTab, cancelAlloc},
	}

	// Start the browser now so a bad exec path fails here, not mid-run.
	if err := chromedp.Run(tabCtx); err != nil {
		m.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return m, nil
}

// Navigate opens the start URL, adding https:// when the site was given bare.
func (m *Manager) Navigate(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	if err := chromedp.Run(m.Ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Evaluate runs a JS expression on the current page. A nil res discards the
// result. The call blocks for as long as the expression does, which is what
// the login gate relies on for native alert/confirm dialogs.
func (m *Manager) Evaluate(ctx context.Context, expr string, res any) error {
	runCtx, cancel := m.TabContext(ctx)
	defer cancel()
	if res == nil {
		return chromedp.Run(runCtx, chromedp.Evaluate(expr, nil))
	}
	return chromedp.Run(runCtx, chromedp.Evaluate(expr, res))
}

// TabContext derives a context for CDP work that is cancelled when either
// the tab or ctx is. A nil ctx returns the tab context unchanged.
func (m *Manager) TabContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return m.Ctx, func() {}
	}
	return mergeCancel(m.Ctx, ctx)
}

func (m *Manager) Close() {
	for _, cancel := range m.cancels {
		cancel()
	}
}

// mergeCancel derives a child of tab that is also cancelled when other is.
func mergeCancel(tab, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
