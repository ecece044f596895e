//go:build linux && !android

package cookielab

func browserBinaryCandidates(b Browser) []string {
	switch b {
	case BrowserChrome:
		return []string{
			"google-chrome",
			"google-chrome-stable",
			"google-chrome-beta",
			"google-chrome-unstable",
			"/usr/bin/google-chrome",
			"/opt/google/chrome/chrome",
		}
	case BrowserChromium:
		return []string{
			"chromium",
			"chromium-browser",
			"/usr/bin/chromium",
		}
	case BrowserEdge:
		return []string{
			"microsoft-edge",
			"microsoft-edge-stable",
			"microsoft-edge-beta",
			"/usr/bin/microsoft-edge",
		}
	case BrowserBrave:
		return []string{
			"brave-browser",
			"brave",
			"/usr/bin/brave-browser",
		}
	case BrowserOpera:
		return []string{
			"opera",
			"/usr/bin/opera",
		}
	default:
		return nil
	}
}
