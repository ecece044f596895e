package cookielab

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ChromeSession implements Session over a Chromium-family browser controlled
// through the DevTools protocol. Cookies arrive decrypted over the wire, so no
// at-rest store access is needed for this family.
type ChromeSession struct {
	allocCancel context.CancelFunc
	baseCtx     context.Context
	baseCancel  context.CancelFunc
	profileDir  string

	mu     sync.Mutex
	active context.Context
	tabs   map[target.ID]context.Context
}

const sessionActionTimeout = 10 * time.Second

func newChromeSession(allocCtx context.Context, allocCancel context.CancelFunc, profileDir string) (*ChromeSession, error) {
	baseCtx, baseCancel := chromedp.NewContext(allocCtx)
	// Starting the browser eagerly surfaces launch failures here instead of on
	// the first action.
	if err := chromedp.Run(baseCtx); err != nil {
		baseCancel()
		allocCancel()
		if profileDir != "" {
			_ = os.RemoveAll(profileDir)
		}
		return nil, fmt.Errorf("cookielab: start browser: %w", err)
	}

	return &ChromeSession{
		allocCancel: allocCancel,
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
		profileDir:  profileDir,
		active:      baseCtx,
		tabs:        make(map[target.ID]context.Context),
	}, nil
}

func (s *ChromeSession) activeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	tab := s.active
	s.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(tab, deadline)
	}
	return context.WithTimeout(tab, sessionActionTimeout)
}

// Navigate opens url in the active tab.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	tab, cancel := s.activeCtx(ctx)
	defer cancel()
	return chromedp.Run(tab, chromedp.Navigate(url))
}

// CurrentURL returns the active tab's URL.
func (s *ChromeSession) CurrentURL(ctx context.Context) (string, error) {
	tab, cancel := s.activeCtx(ctx)
	defer cancel()
	var url string
	if err := chromedp.Run(tab, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title returns the active tab's title.
func (s *ChromeSession) Title(ctx context.Context) (string, error) {
	tab, cancel := s.activeCtx(ctx)
	defer cancel()
	var title string
	if err := chromedp.Run(tab, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// WindowHandles lists the ids of all open page targets.
func (s *ChromeSession) WindowHandles(ctx context.Context) ([]string, error) {
	infos, err := chromedp.Targets(s.baseCtx)
	if err != nil {
		return nil, err
	}
	var handles []string
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		handles = append(handles, string(info.TargetID))
	}
	return handles, nil
}

// SwitchToWindow attaches to the page target with the given handle and makes it
// the active tab for subsequent reads.
func (s *ChromeSession) SwitchToWindow(ctx context.Context, handle string) error {
	id := target.ID(handle)

	s.mu.Lock()
	tab, ok := s.tabs[id]
	s.mu.Unlock()
	if !ok {
		var cancel context.CancelFunc
		tab, cancel = chromedp.NewContext(s.baseCtx, chromedp.WithTargetID(id))
		// Attach now so a dead handle fails here, not on the next read.
		if err := chromedp.Run(tab, chromedp.ActionFunc(func(context.Context) error { return nil })); err != nil {
			cancel()
			return err
		}
		s.mu.Lock()
		s.tabs[id] = tab
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.active = tab
	s.mu.Unlock()
	return nil
}

// NavigationMarker reads performance.timeOrigin from the active tab. The value
// changes on every navigation and refresh.
func (s *ChromeSession) NavigationMarker(ctx context.Context) (float64, error) {
	tab, cancel := s.activeCtx(ctx)
	defer cancel()
	var marker float64
	err := chromedp.Run(tab, chromedp.Evaluate(`performance.timeOrigin || Date.now()`, &marker))
	if err != nil {
		return 0, err
	}
	return marker, nil
}

// Cookies reads the full cookie jar over the wire.
func (s *ChromeSession) Cookies(ctx context.Context) ([]Cookie, error) {
	tab, cancel := s.activeCtx(ctx)
	defer cancel()

	var raw []*network.Cookie
	err := chromedp.Run(tab, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, cdpCookie(c))
	}
	return out, nil
}

func cdpCookie(c *network.Cookie) Cookie {
	out := Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: cdpSameSite(c.SameSite),
	}
	if c.Expires > 0 {
		t := time.Unix(int64(c.Expires), 0).UTC()
		out.Expires = &t
	}
	return out
}

func cdpSameSite(s network.CookieSameSite) SameSite {
	switch s {
	case network.CookieSameSiteStrict:
		return SameSiteStrict
	case network.CookieSameSiteLax:
		return SameSiteLax
	case network.CookieSameSiteNone:
		return SameSiteNone
	default:
		return ""
	}
}

// BrowserVersion reports the product string of the running browser.
func (s *ChromeSession) BrowserVersion(ctx context.Context) (string, error) {
	tab, cancel := s.activeCtx(ctx)
	defer cancel()

	var product string
	err := chromedp.Run(tab, chromedp.ActionFunc(func(ctx context.Context) error {
		_, p, _, _, _, err := browser.GetVersion().Do(ctx)
		product = p
		return err
	}))
	if err != nil {
		return "", err
	}
	return product, nil
}

// Close kills the browser and removes the temporary profile.
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	s.tabs = make(map[target.ID]context.Context)
	s.mu.Unlock()

	s.baseCancel()
	if s.allocCancel != nil {
		s.allocCancel()
	}
	if s.profileDir != "" {
		return os.RemoveAll(s.profileDir)
	}
	return nil
}
