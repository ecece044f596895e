//go:build windows

package cookielab

import (
	"os"
	"path/filepath"
)

func browserBinaryCandidates(b Browser) []string {
	var roots []string
	for _, env := range []string{"PROGRAMFILES", "PROGRAMFILES(X86)", "LOCALAPPDATA"} {
		if v := os.Getenv(env); v != "" {
			roots = append(roots, v)
		}
	}

	var rel []string
	switch b {
	case BrowserChrome:
		rel = []string{filepath.Join("Google", "Chrome", "Application", "chrome.exe")}
	case BrowserChromium:
		rel = []string{filepath.Join("Chromium", "Application", "chrome.exe")}
	case BrowserEdge:
		rel = []string{filepath.Join("Microsoft", "Edge", "Application", "msedge.exe")}
	case BrowserBrave:
		rel = []string{filepath.Join("BraveSoftware", "Brave-Browser", "Application", "brave.exe")}
	case BrowserOpera:
		rel = []string{
			filepath.Join("Opera", "launcher.exe"),
			filepath.Join("Programs", "Opera", "launcher.exe"),
		}
	default:
		return nil
	}

	var out []string
	for _, root := range roots {
		for _, r := range rel {
			out = append(out, filepath.Join(root, r))
		}
	}
	return out
}
