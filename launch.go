package cookielab

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromedp/chromedp"
)

// LaunchChrome starts a Chromium-family browser for the job with a fresh
// temporary profile, the extension pre-loaded, and the job's privacy flags
// applied. The browser runs headful: the whole flow depends on an operator
// driving it.
func LaunchChrome(ctx context.Context, job Job) (*ChromeSession, error) {
	if !job.Browser.IsChromiumFamily() {
		return nil, fmt.Errorf("cookielab: browser %q is not Chromium-family", job.Browser)
	}

	profileDir, err := os.MkdirTemp("", string(job.Browser)+"_profile_")
	if err != nil {
		return nil, fmt.Errorf("cookielab: create temp profile: %w", err)
	}

	if flagsRequestIncognito(job.PrivacyFlags) || len(job.PrivacyPrefs) > 0 {
		if err := seedProfilePreferences(profileDir, job.ExtensionID, job.PrivacyPrefs); err != nil {
			// Seeding is opportunistic; the run still works without it.
			_ = err
		}
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-logging", true),
		chromedp.Flag("log-level", "3"),
	}
	binary := job.BrowserBinary
	if binary == "" {
		binary = DefaultBrowserBinary(job.Browser)
	}
	if binary != "" {
		opts = append(opts, chromedp.ExecPath(binary))
	}
	if job.ExtensionPath != "" {
		opts = append(opts,
			chromedp.Flag("load-extension", job.ExtensionPath),
			// Extensions require a real window.
			chromedp.Flag("headless", false),
		)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	for _, f := range job.PrivacyFlags {
		name, value, hasValue := splitChromeFlag(f)
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	return newChromeSession(allocCtx, allocCancel, profileDir)
}

// splitChromeFlag normalizes "--name=value" / "--name" / "name" command-line forms.
func splitChromeFlag(f string) (name, value string, hasValue bool) {
	f = strings.TrimSpace(f)
	f = strings.TrimLeft(f, "-")
	if f == "" {
		return "", "", false
	}
	if i := strings.IndexByte(f, '='); i >= 0 {
		return f[:i], f[i+1:], true
	}
	return f, "", false
}

func flagsRequestIncognito(flags []string) bool {
	joined := strings.ToLower(strings.Join(flags, " "))
	return strings.Contains(joined, "--incognito") || strings.Contains(joined, "--inprivate")
}

// seedProfilePreferences writes the profile's Default/Preferences JSON before
// launch: it pre-allows the extension in incognito (state only honored when the
// browser actually starts incognito) and merges any top-level privacy prefs.
func seedProfilePreferences(profileDir, extensionID string, prefs map[string]any) error {
	defaultDir := filepath.Join(profileDir, "Default")
	if err := os.MkdirAll(defaultDir, 0o755); err != nil {
		return err
	}
	prefsPath := filepath.Join(defaultDir, "Preferences")

	merged := map[string]any{}
	if raw, err := os.ReadFile(prefsPath); err == nil {
		_ = json.Unmarshal(raw, &merged)
	}

	if extensionID != "" {
		extensions, _ := merged["extensions"].(map[string]any)
		if extensions == nil {
			extensions = map[string]any{}
		}
		settings, _ := extensions["settings"].(map[string]any)
		if settings == nil {
			settings = map[string]any{}
		}
		entry, _ := settings[extensionID].(map[string]any)
		if entry == nil {
			entry = map[string]any{}
		}
		entry["incognito"] = 1
		entry["state"] = 1
		settings[extensionID] = entry
		extensions["settings"] = settings
		merged["extensions"] = extensions
	}
	for k, v := range prefs {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	return os.WriteFile(prefsPath, raw, 0o644)
}
