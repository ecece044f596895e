package cookielab

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func writeTestCookieStore(t *testing.T, dbPath string, rows [][]any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(dbPath)+"?mode=rwc")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE moz_cookies(host TEXT, name TEXT, value TEXT, path TEXT, expiry INTEGER, isSecure INTEGER, isHttpOnly INTEGER, sameSite INTEGER)`); err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if _, err := db.Exec(
			`INSERT INTO moz_cookies(host,name,value,path,expiry,isSecure,isHttpOnly,sameSite) VALUES(?,?,?,?,?,?,?,?)`,
			r...,
		); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFirefoxStoreReadsExplicitDBPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cookies.sqlite")
	expiry := time.Now().Add(24 * time.Hour).Unix()
	writeTestCookieStore(t, dbPath, [][]any{
		{".shop.example", "campaign", "X1", "/", expiry, 1, 0, 1},
		{"shop.example", "", "ignored", "/", expiry, 0, 0, 0},
	})

	store := &FirefoxStore{Profile: dbPath}
	cookies, err := store.Cookies(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 1 {
		t.Fatalf("want 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "campaign" || c.Value != "X1" {
		t.Fatalf("cookie = %#v", c)
	}
	if c.Domain != "shop.example" {
		t.Fatalf("leading dot not stripped: %q", c.Domain)
	}
	if !c.Secure || c.SameSite != SameSiteLax {
		t.Fatalf("flags = %#v", c)
	}
	if c.Expires == nil {
		t.Fatalf("expiry missing")
	}
}

func TestFirefoxStoreResolvesProfileDir(t *testing.T) {
	profileDir := t.TempDir()
	writeTestCookieStore(t, filepath.Join(profileDir, "cookies.sqlite"), [][]any{
		{"shop.example", "sid", "abc", "", 0, 0, 1, 2},
	})

	store := &FirefoxStore{Profile: profileDir}
	cookies, err := store.Cookies(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 1 {
		t.Fatalf("want 1 cookie, got %d", len(cookies))
	}
	if cookies[0].Path != "/" {
		t.Fatalf("empty path should default to /, got %q", cookies[0].Path)
	}
	if cookies[0].SameSite != SameSiteStrict || !cookies[0].HTTPOnly {
		t.Fatalf("cookie = %#v", cookies[0])
	}
	if cookies[0].Expires != nil {
		t.Fatalf("session cookie must have nil expiry")
	}
}

func TestFirefoxStoreMissingStore(t *testing.T) {
	store := &FirefoxStore{Profile: filepath.Join(t.TempDir(), "nope")}
	if _, err := store.Cookies(context.Background()); err == nil {
		t.Fatalf("expected error for missing profile")
	}
}
