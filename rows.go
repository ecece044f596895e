package cookielab

import (
	"strconv"
	"strings"
	"time"
)

// Row is an ordered set of column/value pairs. Column order is the order of
// first Set, which the report sink preserves when growing sheet headers.
type Row struct {
	keys []string
	vals map[string]string
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{vals: make(map[string]string)}
}

// Set assigns a value to a column, appending the column on first use.
func (r *Row) Set(key, value string) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = value
}

// Keys returns the column names in insertion order.
func (r *Row) Keys() []string { return r.keys }

// Get returns the value for a column and whether the column is present.
func (r *Row) Get(key string) (string, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Len returns the number of columns set on the row.
func (r *Row) Len() int { return len(r.keys) }

// cookieColumnPrefix disambiguates dynamically discovered cookie columns from
// the fixed metadata columns of the wide sheet.
const cookieColumnPrefix = "Cookie:"

// sanitizeCookieColumn turns a raw cookie name into a safe column header:
// newlines, carriage returns and tabs collapse to spaces, and the Cookie:
// prefix is applied unless already present.
func sanitizeCookieColumn(name string) string {
	safe := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(name)
	safe = strings.TrimSpace(safe)
	if safe == "" {
		return cookieColumnPrefix + "UNKNOWN"
	}
	if strings.HasPrefix(safe, cookieColumnPrefix) {
		return safe
	}
	return cookieColumnPrefix + safe
}

func beforeColumn(name string) string { return sanitizeCookieColumn(name) + " (Before)" }
func afterColumn(name string) string  { return sanitizeCookieColumn(name) + " (After)" }

// RowInput carries everything the row builder consumes for one job.
type RowInput struct {
	Job  Job
	Spec *TargetSpec

	// Landing is optional; Before and After are required.
	Landing *Snapshot
	Before  Snapshot
	After   Snapshot

	Observation Observation

	BrowserVersion string
	// PopupSeen is the operator's answer: "Yes", "No" or "Skipped".
	PopupSeen     string
	Status        string
	FailureReason string
	Notes         string
	ObservedAt    time.Time
}

func (in RowInput) timestamp() string {
	ts := in.ObservedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format("2006-01-02T15:04:05") + "Z"
}

// prefixed applies the job's ordinal prefix to non-empty values.
func (in RowInput) prefixed(value string) string {
	if value == "" {
		return ""
	}
	return in.Job.OrdinalPrefix() + value
}

// BuildRows assembles the three report records for one job: the wide comparison
// row, the Clean_Data summary row, and zero or more diagnostics rows. Rows are
// appended to the sink in exactly that order.
func BuildRows(in RowInput) (wide, summary *Row, diags []*Row) {
	if in.Spec == nil {
		in.Spec = DefaultTargets()
	}
	return buildWideRow(in), buildSummaryRow(in), buildDiagnosticsRows(in)
}

func buildWideRow(in RowInput) *Row {
	job := in.Job
	wide := NewRow()
	wide.Set("Plugin", job.ExtensionName)
	wide.Set("Browser", string(job.Browser))
	wide.Set("Browser Privacy Level", job.PrivacyName)
	wide.Set("Browser Version", in.BrowserVersion)
	if in.Landing != nil {
		wide.Set("Website (Landing)", in.Landing.Host)
		wide.Set("Website (Before)", in.Before.Host)
		wide.Set("Website (After)", in.After.Host)
	} else {
		// The merchant is whoever hosted checkout; a post-action redirect must
		// not relabel the row with the tracker's host.
		wide.Set("Website", in.Before.Host)
	}
	wide.Set("Affiliate Link", job.AffiliateLink)

	beforeTargets := TargetValues(in.Before.Cookies, in.Spec)
	afterTargets := TargetValues(in.After.Cookies, in.Spec)
	var landingTargets map[string]string
	if in.Landing != nil {
		landingTargets = TargetValues(in.Landing.Cookies, in.Spec)
	}

	setPair := func(key, column string, vals map[string]string) {
		v, ok := vals[key]
		if !ok {
			wide.Set(column, "")
			return
		}
		wide.Set(column, in.prefixed(v))
	}

	for _, ck := range sortedKeysFold(landingTargets, beforeTargets, afterTargets) {
		if in.Landing != nil {
			setPair(ck, ck+" (Landing)", landingTargets)
		}
		setPair(ck, ck+" (Before)", beforeTargets)
		setPair(ck, ck+" (After)", afterTargets)
	}

	// Non-target cookies only earn columns when they actually changed.
	for _, name := range ChangedNames(in.Before.Cookies, in.After.Cookies) {
		if in.Spec.IsTarget(name) {
			continue
		}
		wide.Set(beforeColumn(name), in.prefixed(firstValueByName(in.Before.Cookies, name)))
		wide.Set(afterColumn(name), in.prefixed(firstValueByName(in.After.Cookies, name)))
	}

	return wide
}

// firstValueByName returns the first captured value for a cookie name, or "".
func firstValueByName(cookies []Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func buildSummaryRow(in RowInput) *Row {
	job := in.Job
	obs := in.Observation

	var added, changed int
	for _, r := range Diff(in.Before.Cookies, in.After.Cookies) {
		switch r.Change {
		case ChangeAdded:
			added++
		case ChangeChanged:
			changed++
		}
	}

	var tabURLs, tabTitles []string
	for _, tab := range obs.NewTabs {
		if tab.URL != "" {
			tabURLs = append(tabURLs, tab.URL)
		}
		if tab.Title != "" {
			tabTitles = append(tabTitles, tab.Title)
		}
	}

	status := in.Status
	if status == "" {
		status = "SUCCESS"
	}
	notes := in.Notes
	if notes == "" {
		notes = "CookieComparisonRow=1; Tabs=" + strconv.Itoa(len(obs.NewTabs))
	}
	refreshed := "No"
	if obs.Refreshed {
		refreshed = "Yes"
	}

	row := NewRow()
	row.Set("Timestamp", in.timestamp())
	row.Set("Test ID", job.JobID)
	row.Set("Browser", string(job.Browser))
	row.Set("Browser Privacy Level", job.PrivacyName)
	row.Set("Browser Version", in.BrowserVersion)
	row.Set("Extension", job.ExtensionName)
	row.Set("Extension Version", job.ExtensionVersion)
	if in.Landing != nil {
		row.Set("Merchant (Landing)", in.Landing.Host)
		row.Set("Merchant (Before)", in.Before.Host)
		row.Set("Merchant (After)", in.After.Host)
	} else {
		row.Set("Merchant", in.Before.Host)
	}
	row.Set("Affiliate Link", job.AffiliateLink)
	row.Set("Coupon Applied?", "")
	row.Set("Extension Popup Seen?", in.PopupSeen)
	row.Set("New Pages Opened", strconv.Itoa(len(obs.NewTabs)))
	row.Set("Cookies Added (count)", strconv.Itoa(added))
	row.Set("Cookies Changed (count)", strconv.Itoa(changed))
	row.Set("Redirect URL", obs.RedirectURL)
	row.Set("Refreshed?", refreshed)
	row.Set("New Tab URLs", strings.Join(tabURLs, "; "))
	row.Set("New Tab Titles", strings.Join(tabTitles, "; "))
	row.Set("Status", status)
	row.Set("Failure Reason", in.FailureReason)
	row.Set("Notes", notes)
	row.Set("Redirect Window (s)", strconv.FormatFloat(in.Job.redirectWindow().Seconds(), 'g', -1, 64))
	return row
}

func buildDiagnosticsRows(in RowInput) []*Row {
	job := in.Job
	ts := in.timestamp()

	merchant := in.Before.Host
	base := func() *Row {
		row := NewRow()
		row.Set("Test ID", job.JobID)
		row.Set("Browser", string(job.Browser))
		row.Set("Browser Version", in.BrowserVersion)
		row.Set("Extension", job.ExtensionName)
		row.Set("Extension Version", job.ExtensionVersion)
		row.Set("Merchant", merchant)
		row.Set("Affiliate Link", job.AffiliateLink)
		return row
	}

	var diags []*Row
	targetDiff := DiffTargets(in.Before.Cookies, in.After.Cookies, in.Spec)
	keys := make(map[string]string, len(targetDiff))
	for ck := range targetDiff {
		keys[ck] = ""
	}
	for _, ck := range sortedKeysFold(keys) {
		r := targetDiff[ck]
		if r.Change == ChangeUnchanged {
			continue
		}
		row := base()
		row.Set("Cookie Name", ck)
		row.Set("Change", string(r.Change))
		row.Set("Before Hash", r.BeforeHash)
		row.Set("After Hash", r.AfterHash)
		row.Set("Observed At", ts)
		diags = append(diags, row)
	}

	for _, tab := range in.Observation.NewTabs {
		row := base()
		row.Set("Cookie Name", "(new_tab)")
		row.Set("Change", tab.Title)
		row.Set("Before Hash", "")
		row.Set("After Hash", tab.URL)
		row.Set("Observed At", ts)
		diags = append(diags, row)
	}
	return diags
}
