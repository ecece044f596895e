package cookielab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileSource reads a cookie snapshot from a JSON export on disk, the format
// cookie-editor style extensions produce. It accepts both a bare array and a
// `{"cookies": [...]}` wrapper. Useful as a Runner fallback for browsers the
// wire protocol cannot reach: the operator exports the jar by hand and the
// audit reads the file.
type FileSource struct {
	Path string
}

type exportPayload struct {
	Cookies []exportCookie `json:"cookies"`
}

type exportCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
	SameSite string `json:"sameSite"`
	// Exports disagree on the expiry key and type; accept both spellings.
	Expires        any     `json:"expires"`
	ExpirationDate float64 `json:"expirationDate"`
}

// Cookies implements SnapshotSource.
func (s *FileSource) Cookies(_ context.Context) ([]Cookie, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("cookielab: read cookie export: %w", err)
	}

	var payload exportPayload
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Cookies) > 0 {
		return exportToCookies(payload.Cookies), nil
	}

	var arr []exportCookie
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("cookielab: parse cookie export %s: %w", s.Path, err)
	}
	if len(arr) == 0 {
		return nil, errors.New("cookielab: cookie export is empty")
	}
	return exportToCookies(arr), nil
}

func exportToCookies(in []exportCookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		if c.Name == "" {
			continue
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		cc := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: exportSameSite(c.SameSite),
		}
		if t := exportExpires(c); t != nil {
			cc.Expires = t
		}
		out = append(out, cc)
	}
	return out
}

func exportExpires(c exportCookie) *time.Time {
	if c.ExpirationDate > 0 {
		t := time.Unix(int64(c.ExpirationDate), 0).UTC()
		return &t
	}
	switch v := c.Expires.(type) {
	case float64:
		if v <= 0 {
			return nil
		}
		t := time.Unix(int64(v), 0).UTC()
		return &t
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}

func exportSameSite(v string) SameSite {
	switch v {
	case "Strict", "strict":
		return SameSiteStrict
	case "Lax", "lax":
		return SameSiteLax
	case "None", "none", "NoRestriction", "no_restriction":
		return SameSiteNone
	default:
		return ""
	}
}
