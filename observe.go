package cookielab

import (
	"context"
	"time"
)

// Session is the live-browser contract the audit consumes. Implementations wrap
// a browser automation backend; every method may fail transiently (the operator
// can close windows at any time) and callers treat reads as best-effort.
type Session interface {
	// Navigate opens url in the active tab.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the active tab's URL.
	CurrentURL(ctx context.Context) (string, error)
	// Title returns the active tab's title.
	Title(ctx context.Context) (string, error)
	// WindowHandles enumerates all open window/tab handles.
	WindowHandles(ctx context.Context) ([]string, error)
	// SwitchToWindow makes the given handle the active tab.
	SwitchToWindow(ctx context.Context, handle string) error
	// NavigationMarker returns a value that changes on navigation or refresh
	// (for example performance.timeOrigin).
	NavigationMarker(ctx context.Context) (float64, error)
	// Cookies reads the full cookie jar of the session.
	Cookies(ctx context.Context) ([]Cookie, error)
	// BrowserVersion reports the browser's version string, if known.
	BrowserVersion(ctx context.Context) (string, error)
	// Close tears the session down.
	Close() error
}

// DefaultObserveTick is the polling interval of the observation loop.
const DefaultObserveTick = 200 * time.Millisecond

// PreAction is the browser state captured right before the extension action.
type PreAction struct {
	URL       string
	NavMarker float64
	Handles   []string
}

// CapturePreAction snapshots the state Observe later compares against. Reads
// are best-effort; a failed read leaves the zero value, which disables the
// corresponding signal during observation.
func CapturePreAction(ctx context.Context, s Session) PreAction {
	var pre PreAction
	if u, err := s.CurrentURL(ctx); err == nil {
		pre.URL = u
	}
	if m, err := s.NavigationMarker(ctx); err == nil {
		pre.NavMarker = m
	}
	if hs, err := s.WindowHandles(ctx); err == nil {
		pre.Handles = hs
	}
	return pre
}

// Observe polls the browser for the full window, collecting same-tab redirects,
// refreshes and newly opened tabs. It never exits early on a signal: delayed
// redirects are common, so the whole window is always watched. Browser read
// failures count as "no signal this tick". Cancelling ctx ends the watch with
// whatever was collected so far.
func Observe(ctx context.Context, s Session, pre PreAction, window, tick time.Duration) Observation {
	if tick <= 0 {
		tick = DefaultObserveTick
	}

	seen := make(map[string]struct{}, len(pre.Handles))
	for _, h := range pre.Handles {
		seen[h] = struct{}{}
	}

	var obs Observation
	home := ""
	if len(pre.Handles) > 0 {
		home = pre.Handles[0]
	}

	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		handles, err := s.WindowHandles(ctx)
		if err != nil {
			handles = nil
		}
		for _, h := range handles {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			var tab Tab
			if err := s.SwitchToWindow(ctx, h); err == nil {
				tab.Title, _ = s.Title(ctx)
				tab.URL, _ = s.CurrentURL(ctx)
			}
			obs.NewTabs = append(obs.NewTabs, tab)
		}
		if home != "" {
			// Best-effort: the original window may have closed.
			_ = s.SwitchToWindow(ctx, home)
		}

		currURL, err := s.CurrentURL(ctx)
		if err != nil {
			currURL = ""
		}
		if currURL != "" && pre.URL != "" && currURL != pre.URL && obs.RedirectURL == "" {
			obs.RedirectURL = currURL
		}
		if marker, err := s.NavigationMarker(ctx); err == nil {
			if pre.NavMarker != 0 && marker != pre.NavMarker && obs.RedirectURL == "" && currURL == pre.URL {
				obs.Refreshed = true
			}
		}

		select {
		case <-ctx.Done():
			return finishObservation(ctx, s, home, obs)
		case <-time.After(tick):
		}
	}

	return finishObservation(ctx, s, home, obs)
}

func finishObservation(ctx context.Context, s Session, home string, obs Observation) Observation {
	if obs.RedirectURL == "" && len(obs.NewTabs) > 0 {
		obs.RedirectURL = obs.NewTabs[0].URL
	}
	if home != "" {
		_ = s.SwitchToWindow(ctx, home)
	}
	return obs
}
