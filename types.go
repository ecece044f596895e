package cookielab

import (
	"strconv"
	"time"
)

// Browser identifies a browser family under test.
type Browser string

const (
	// BrowserChrome is Google Chrome.
	BrowserChrome Browser = "chrome"
	// BrowserChromium is Chromium.
	BrowserChromium Browser = "chromium"
	// BrowserEdge is Microsoft Edge.
	BrowserEdge Browser = "edge"
	// BrowserBrave is Brave Browser.
	BrowserBrave Browser = "brave"
	// BrowserOpera is Opera.
	BrowserOpera Browser = "opera"

	// BrowserFirefox is Mozilla Firefox.
	BrowserFirefox Browser = "firefox"
)

// IsChromiumFamily reports whether b launches through the Chromium driver path.
func (b Browser) IsChromiumFamily() bool {
	switch b {
	case BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave, BrowserOpera:
		return true
	default:
		return false
	}
}

// SameSite is the cookie SameSite attribute.
type SameSite string

const (
	// SameSiteNone is SameSite=None.
	SameSiteNone SameSite = "None"
	// SameSiteLax is SameSite=Lax.
	SameSiteLax SameSite = "Lax"
	// SameSiteStrict is SameSite=Strict.
	SameSiteStrict SameSite = "Strict"
)

// Cookie is one browser cookie at a point in time.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite SameSite

	Expires *time.Time
}

// Identity is the diffing key for a cookie. Value is deliberately excluded.
type Identity struct {
	Name   string
	Domain string
	Path   string
}

// Identity returns the (name, domain, path) diffing key for c.
func (c Cookie) Identity() Identity {
	return Identity{Name: c.Name, Domain: c.Domain, Path: c.Path}
}

// Moment names a snapshot point in the manual flow.
type Moment string

const (
	// MomentLanding is taken right after the affiliate link opens.
	MomentLanding Moment = "Landing"
	// MomentBefore is taken at checkout, before the extension action.
	MomentBefore Moment = "Before"
	// MomentAfter is taken once the post-action observation window closes.
	MomentAfter Moment = "After"
)

// Snapshot is the cookie jar captured at one moment, plus the page host seen then.
// Cookies keep capture order; diffing treats them as a set keyed by Identity with
// first occurrence winning on duplicates.
type Snapshot struct {
	Moment  Moment
	Host    string
	Cookies []Cookie
}

// Tab describes a window or tab discovered during the observation window.
type Tab struct {
	Title string
	URL   string
}

// Observation is the result of watching the browser after the extension action.
type Observation struct {
	// RedirectURL is the first same-tab URL change, or failing that the first
	// new tab's URL. Empty when neither happened.
	RedirectURL string
	// Refreshed is true when the navigation marker changed while the URL held
	// steady and no redirect was recorded.
	Refreshed bool
	// NewTabs lists newly opened windows/tabs in discovery order, deduplicated
	// by window handle.
	NewTabs []Tab
}

// Job describes one audit run: one browser, one extension, one affiliate link.
type Job struct {
	JobID            string
	Browser          Browser
	BrowserBinary    string
	ExtensionName    string
	ExtensionVersion string
	ExtensionPath    string
	// ExtensionID pre-allows the extension in incognito when set (Chromium family).
	ExtensionID string
	// ExtensionOrdinal prefixes reported values with "<n>." when non-zero, so
	// several extensions can share one report without value collisions.
	ExtensionOrdinal int
	AffiliateLink    string

	PrivacyName  string
	PrivacyFlags []string
	PrivacyPrefs map[string]any

	// RedirectWindow bounds the post-action observation. Zero means DefaultRedirectWindow.
	RedirectWindow time.Duration
	// CaptureLanding adds a Landing snapshot before the operator starts navigating.
	CaptureLanding bool
}

// DefaultRedirectWindow is the observation window used when a job does not set one.
const DefaultRedirectWindow = 6 * time.Second

func (j Job) redirectWindow() time.Duration {
	if j.RedirectWindow > 0 {
		return j.RedirectWindow
	}
	return DefaultRedirectWindow
}

// OrdinalPrefix returns the value prefix for the job's extension ordinal, or "".
func (j Job) OrdinalPrefix() string {
	if j.ExtensionOrdinal <= 0 {
		return ""
	}
	return strconv.Itoa(j.ExtensionOrdinal) + "."
}
