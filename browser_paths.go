package cookielab

import "os/exec"

// DefaultBrowserBinary locates an installed binary for a Chromium-family
// browser when the job matrix does not pin one. It checks well-known per-OS
// install locations first, then PATH. Empty means nothing was found, in which
// case the driver falls back to its own discovery.
func DefaultBrowserBinary(b Browser) string {
	for _, candidate := range browserBinaryCandidates(b) {
		if path, err := exec.LookPath(candidate); err == nil {
			return path
		}
	}
	return ""
}
