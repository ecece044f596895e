package cookielab

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-ini/ini"
	_ "modernc.org/sqlite" // SQLite driver (pure Go).
)

// FirefoxStore captures cookie snapshots from a Firefox profile's on-disk
// cookies.sqlite. Firefox keeps this store unencrypted, so it can serve as a
// SnapshotSource while the operator drives a Firefox window the audit does not
// control over a wire protocol.
//
// The store is copied (with WAL sidecars) to a temp dir before every read, so
// a running Firefox holding the database open never blocks a snapshot.
type FirefoxStore struct {
	// Profile selects a profile by name, directory, or an explicit
	// cookies.sqlite path. Empty uses the first profile found in profiles.ini.
	Profile string
}

// Cookies reads the full cookie jar of the resolved profile.
func (s *FirefoxStore) Cookies(ctx context.Context) ([]Cookie, error) {
	dbPath, err := s.resolveStorePath()
	if err != nil {
		return nil, err
	}

	snap, cleanup, err := snapshotSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("cookielab: snapshot firefox store: %w", err)
	}
	defer cleanup()

	db, err := openSQLiteReadOnly(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("cookielab: open firefox store: %w", err)
	}
	defer func() { _ = db.Close() }()

	return readMozCookies(ctx, db)
}

func (s *FirefoxStore) resolveStorePath() (string, error) {
	override := strings.TrimSpace(s.Profile)
	if override != "" {
		if fi, err := os.Stat(override); err == nil {
			if !fi.IsDir() {
				return override, nil
			}
			dbPath := filepath.Join(override, "cookies.sqlite")
			if _, err := os.Stat(dbPath); err == nil {
				return dbPath, nil
			}
			return "", fmt.Errorf("cookielab: no cookies.sqlite in %q", override)
		}
	}

	for _, root := range firefoxProfileRoots() {
		cfg, err := ini.Load(filepath.Join(root, "profiles.ini"))
		if err != nil {
			continue
		}
		for _, secName := range cfg.SectionStrings() {
			if !strings.HasPrefix(secName, "Profile") {
				continue
			}
			sec := cfg.Section(secName)
			pathStr := filepath.FromSlash(sec.Key("Path").String())
			if pathStr == "" {
				continue
			}
			if sec.Key("IsRelative").String() == "1" {
				pathStr = filepath.Join(root, pathStr)
			}
			name := sec.Key("Name").String()
			if override != "" && name != override && filepath.Base(pathStr) != override {
				continue
			}
			dbPath := filepath.Join(pathStr, "cookies.sqlite")
			if _, err := os.Stat(dbPath); err == nil {
				return dbPath, nil
			}
		}
	}

	if override != "" {
		return "", fmt.Errorf("cookielab: firefox profile %q not found", override)
	}
	return "", fmt.Errorf("cookielab: no firefox cookie store found")
}

func firefoxProfileRoots() []string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return []string{filepath.Join(appData, "Mozilla", "Firefox")}
		}
		return nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		return []string{filepath.Join(home, "Library", "Application Support", "Firefox")}
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		return []string{filepath.Join(home, ".mozilla", "firefox")}
	}
}

// snapshotSQLite copies the store and its WAL sidecars to a temp dir so reads
// never contend with the running browser.
func snapshotSQLite(dbPath string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "cookielab-firefox-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	target := filepath.Join(dir, "cookies.sqlite")
	if err := copyStoreFile(dbPath, target); err != nil {
		cleanup()
		return "", nil, err
	}
	// Sidecars only exist while the database is in WAL mode.
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(dbPath + suffix); err == nil {
			_ = copyStoreFile(dbPath+suffix, target+suffix)
		}
	}

	return target, cleanup, nil
}

func copyStoreFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

func openSQLiteReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func readMozCookies(ctx context.Context, db *sql.DB) ([]Cookie, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT host, name, value, path, expiry, isSecure, isHttpOnly, sameSite FROM moz_cookies`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Cookie
	for rows.Next() {
		var host, name, value, path string
		var expiry, secure, httpOnly, sameSite sql.NullInt64
		if err := rows.Scan(&host, &name, &value, &path, &expiry, &secure, &httpOnly, &sameSite); err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		if path == "" {
			path = "/"
		}

		c := Cookie{
			Name:     name,
			Value:    value,
			Domain:   strings.TrimPrefix(host, "."),
			Path:     path,
			Secure:   secure.Valid && secure.Int64 == 1,
			HTTPOnly: httpOnly.Valid && httpOnly.Int64 == 1,
			SameSite: mozSameSite(sameSite),
		}
		if expiry.Valid && expiry.Int64 > 0 {
			t := time.Unix(expiry.Int64, 0).UTC()
			c.Expires = &t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func mozSameSite(v sql.NullInt64) SameSite {
	if !v.Valid {
		return ""
	}
	switch v.Int64 {
	case 1:
		return SameSiteLax
	case 2:
		return SameSiteStrict
	default:
		return SameSiteNone
	}
}
