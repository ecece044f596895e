//go:build darwin && !ios

package cookielab

func browserBinaryCandidates(b Browser) []string {
	switch b {
	case BrowserChrome:
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"google-chrome",
		}
	case BrowserChromium:
		return []string{
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"chromium",
		}
	case BrowserEdge:
		return []string{
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	case BrowserBrave:
		return []string{
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case BrowserOpera:
		return []string{
			"/Applications/Opera.app/Contents/MacOS/Opera",
		}
	default:
		return nil
	}
}
