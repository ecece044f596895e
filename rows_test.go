package cookielab

import (
	"strings"
	"testing"
	"time"
)

func testJob() Job {
	return Job{
		JobID:            "job-chrome-acme-0001",
		Browser:          BrowserChrome,
		ExtensionName:    "Acme Coupons",
		ExtensionVersion: "2.1",
		AffiliateLink:    "https://go.example/aff?id=77",
		PrivacyName:      "Normal",
	}
}

func TestBuildRowsChangedTarget(t *testing.T) {
	in := RowInput{
		Job:    testJob(),
		Spec:   DefaultTargets(),
		Before: Snapshot{Moment: MomentBefore, Host: "shop.example", Cookies: []Cookie{{Name: "campaign", Value: "X1", Domain: "d", Path: "/"}}},
		After:  Snapshot{Moment: MomentAfter, Host: "shop.example", Cookies: []Cookie{{Name: "campaign", Value: "X2", Domain: "d", Path: "/"}}},
	}

	wide, summary, diags := BuildRows(in)

	if v, _ := wide.Get("campaign (Before)"); v != "X1" {
		t.Fatalf("campaign (Before) = %q", v)
	}
	if v, _ := wide.Get("campaign (After)"); v != "X2" {
		t.Fatalf("campaign (After) = %q", v)
	}
	if v, _ := summary.Get("Cookies Changed (count)"); v != "1" {
		t.Fatalf("changed count = %q", v)
	}

	if len(diags) != 1 {
		t.Fatalf("want one diagnostics row, got %d", len(diags))
	}
	if v, _ := diags[0].Get("Cookie Name"); v != "campaign" {
		t.Fatalf("diag cookie = %q", v)
	}
	if v, _ := diags[0].Get("Change"); v != "CHANGED" {
		t.Fatalf("diag change = %q", v)
	}
	bh, _ := diags[0].Get("Before Hash")
	ah, _ := diags[0].Get("After Hash")
	if bh == "" || ah == "" || bh == ah {
		t.Fatalf("diag hashes: %q vs %q", bh, ah)
	}
	if strings.Contains(bh, "X1") || strings.Contains(ah, "X2") {
		t.Fatalf("diagnostics must never carry raw values")
	}
}

func TestBuildRowsOrdinalPrefix(t *testing.T) {
	job := testJob()
	job.ExtensionOrdinal = 3
	in := RowInput{
		Job:    job,
		Spec:   DefaultTargets(),
		Before: Snapshot{Moment: MomentBefore, Host: "shop.example"},
		After:  Snapshot{Moment: MomentAfter, Host: "shop.example", Cookies: []Cookie{{Name: "gclid", Value: "abc", Domain: "d", Path: "/"}}},
	}

	wide, _, diags := BuildRows(in)
	if v, _ := wide.Get("gclid (After)"); v != "3.abc" {
		t.Fatalf("gclid (After) = %q", v)
	}
	if v, _ := wide.Get("gclid (Before)"); v != "" {
		t.Fatalf("gclid (Before) = %q, want empty", v)
	}
	if len(diags) != 1 {
		t.Fatalf("want one diagnostics row, got %d", len(diags))
	}
	if v, _ := diags[0].Get("Change"); v != "ADDED" {
		t.Fatalf("change = %q", v)
	}
}

func TestBuildRowsSkipPath(t *testing.T) {
	snap := Snapshot{Moment: MomentBefore, Host: "shop.example", Cookies: []Cookie{
		{Name: "campaign", Value: "X1", Domain: "d", Path: "/"},
		{Name: "misc", Value: "1", Domain: "d", Path: "/"},
	}}
	after := snap
	after.Moment = MomentAfter

	in := RowInput{
		Job:       testJob(),
		Spec:      DefaultTargets(),
		Before:    snap,
		After:     after,
		PopupSeen: "Skipped",
	}

	wide, summary, diags := BuildRows(in)
	if wide.Len() == 0 {
		t.Fatalf("wide row must still be produced")
	}
	if v, _ := summary.Get("Extension Popup Seen?"); v != "Skipped" {
		t.Fatalf("popup = %q", v)
	}
	if len(diags) != 0 {
		t.Fatalf("nothing changed, want zero diagnostics rows, got %d", len(diags))
	}
	if v, _ := summary.Get("Cookies Added (count)"); v != "0" {
		t.Fatalf("added = %q", v)
	}
}

func TestBuildRowsNonTargetColumnsOnlyWhenChanged(t *testing.T) {
	in := RowInput{
		Job:  testJob(),
		Spec: DefaultTargets(),
		Before: Snapshot{Cookies: []Cookie{
			{Name: "steady_pref", Value: "1", Domain: "d", Path: "/"},
			{Name: "mutating\npref", Value: "old", Domain: "d", Path: "/"},
		}},
		After: Snapshot{Cookies: []Cookie{
			{Name: "steady_pref", Value: "1", Domain: "d", Path: "/"},
			{Name: "mutating\npref", Value: "new", Domain: "d", Path: "/"},
		}},
	}

	wide, _, _ := BuildRows(in)
	if _, ok := wide.Get("Cookie:steady_pref (Before)"); ok {
		t.Fatalf("unchanged non-target must not earn a column")
	}
	if v, ok := wide.Get("Cookie:mutating pref (Before)"); !ok || v != "old" {
		t.Fatalf("sanitized changed column missing: %q, %v", v, ok)
	}
	if v, _ := wide.Get("Cookie:mutating pref (After)"); v != "new" {
		t.Fatalf("after value = %q", v)
	}
}

func TestBuildRowsLandingColumns(t *testing.T) {
	landing := Snapshot{Moment: MomentLanding, Host: "land.example", Cookies: []Cookie{
		{Name: "campaign", Value: "L0", Domain: "d", Path: "/"},
	}}
	in := RowInput{
		Job:     testJob(),
		Spec:    DefaultTargets(),
		Landing: &landing,
		Before:  Snapshot{Moment: MomentBefore, Host: "shop.example", Cookies: []Cookie{{Name: "campaign", Value: "X1", Domain: "d", Path: "/"}}},
		After:   Snapshot{Moment: MomentAfter, Host: "shop.example", Cookies: []Cookie{{Name: "campaign", Value: "X1", Domain: "d", Path: "/"}}},
	}

	wide, summary, _ := BuildRows(in)
	if v, _ := wide.Get("campaign (Landing)"); v != "L0" {
		t.Fatalf("landing value = %q", v)
	}
	if v, _ := wide.Get("Website (Landing)"); v != "land.example" {
		t.Fatalf("landing host = %q", v)
	}
	if v, _ := summary.Get("Merchant (Before)"); v != "shop.example" {
		t.Fatalf("merchant before = %q", v)
	}
}

func TestBuildRowsObservationFields(t *testing.T) {
	in := RowInput{
		Job:    testJob(),
		Spec:   DefaultTargets(),
		Before: Snapshot{Host: "shop.example"},
		After:  Snapshot{Host: "shop.example"},
		Observation: Observation{
			RedirectURL: "https://tracker.example/c",
			Refreshed:   false,
			NewTabs: []Tab{
				{Title: "Partner", URL: "https://partner.example/"},
				{Title: "", URL: "https://blank.example/"},
			},
		},
		ObservedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}

	_, summary, diags := BuildRows(in)
	if v, _ := summary.Get("Redirect URL"); v != "https://tracker.example/c" {
		t.Fatalf("redirect = %q", v)
	}
	if v, _ := summary.Get("New Pages Opened"); v != "2" {
		t.Fatalf("pages = %q", v)
	}
	if v, _ := summary.Get("New Tab URLs"); v != "https://partner.example/; https://blank.example/" {
		t.Fatalf("tab urls = %q", v)
	}
	if v, _ := summary.Get("New Tab Titles"); v != "Partner" {
		t.Fatalf("tab titles = %q", v)
	}
	if v, _ := summary.Get("Timestamp"); v != "2026-08-31T12:00:00Z" {
		t.Fatalf("timestamp = %q", v)
	}

	if len(diags) != 2 {
		t.Fatalf("want 2 tab diagnostics rows, got %d", len(diags))
	}
	if v, _ := diags[0].Get("Cookie Name"); v != "(new_tab)" {
		t.Fatalf("tab diag name = %q", v)
	}
	if v, _ := diags[0].Get("After Hash"); v != "https://partner.example/" {
		t.Fatalf("tab diag url = %q", v)
	}
}

func TestBuildRowsMerchantStaysOnCheckoutHost(t *testing.T) {
	in := RowInput{
		Job:    Job{JobID: "j-redir", Browser: BrowserChrome, AffiliateLink: "https://go.example/aff?id=1"},
		Before: Snapshot{Moment: MomentBefore, Host: "shop.example"},
		After:  Snapshot{Moment: MomentAfter, Host: "tracker.example"},
		Observation: Observation{
			RedirectURL: "https://tracker.example/landing",
			NewTabs:     []Tab{{Title: "Deal applied", URL: "https://tracker.example/tab"}},
		},
	}
	wide, summary, diags := BuildRows(in)
	if len(diags) == 0 {
		t.Fatal("expected a new-tab diagnostics row")
	}

	if v, _ := wide.Get("Website"); v != "shop.example" {
		t.Fatalf("website = %q, want the checkout host", v)
	}
	if v, _ := summary.Get("Merchant"); v != "shop.example" {
		t.Fatalf("merchant = %q, want the checkout host", v)
	}
	// The redirect target still lands in its own column.
	if v, _ := summary.Get("Redirect URL"); v != "https://tracker.example/landing" {
		t.Fatalf("redirect url = %q", v)
	}
	for _, d := range diags {
		if v, _ := d.Get("Merchant"); v != "shop.example" {
			t.Fatalf("diag merchant = %q", v)
		}
	}
}

func TestRowPreservesInsertionOrder(t *testing.T) {
	r := NewRow()
	r.Set("b", "1")
	r.Set("a", "2")
	r.Set("b", "3")
	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("keys = %v", keys)
	}
	if v, _ := r.Get("b"); v != "3" {
		t.Fatalf("overwrite lost: %q", v)
	}
}

func TestSanitizeCookieColumn(t *testing.T) {
	if got := sanitizeCookieColumn("a\r\nb\tc"); got != "Cookie:a  b c" {
		t.Fatalf("got %q", got)
	}
	if got := sanitizeCookieColumn("Cookie:already"); got != "Cookie:already" {
		t.Fatalf("got %q", got)
	}
	if got := sanitizeCookieColumn(""); got != "Cookie:UNKNOWN" {
		t.Fatalf("got %q", got)
	}
}
