package cookielab

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SnapshotSource captures cookies out-of-band, typically from the browser's
// on-disk store, for sessions that cannot serve a live cookie jar.
type SnapshotSource interface {
	Cookies(ctx context.Context) ([]Cookie, error)
}

// Runner executes audit jobs against one live browser session. Jobs are
// strictly sequential; the whole process blocks on operator input while a job
// is in flight.
type Runner struct {
	Session  Session
	Prompter Prompter
	Report   *Report

	// Spec defaults to DefaultTargets.
	Spec *TargetSpec
	// Fallback, when set, serves snapshots if the live session cannot read
	// cookies (window closed, store-only capture).
	Fallback SnapshotSource

	// WaitRetry paces the checkout polling loop. Defaults to 4s.
	WaitRetry time.Duration
	// ObserveTick overrides the observation polling interval (tests only).
	ObserveTick time.Duration
}

func (r *Runner) waitRetry() time.Duration {
	if r.WaitRetry > 0 {
		return r.WaitRetry
	}
	return 4 * time.Second
}

// RunJob drives one job end to end: navigate, optional landing snapshot,
// checkout gate, before snapshot, extension action, observation window, after
// snapshot, and the three report appends in wide/summary/diagnostics order.
//
// Snapshot failures degrade to empty snapshots and are noted on the summary
// row; only navigation and report persistence surface as errors.
func (r *Runner) RunJob(ctx context.Context, job Job) error {
	spec := r.Spec
	if spec == nil {
		spec = DefaultTargets()
	}

	if err := r.Session.Navigate(ctx, job.AffiliateLink); err != nil {
		return fmt.Errorf("cookielab: %s: open affiliate link: %w", job.JobID, err)
	}

	browserVer, _ := r.Session.BrowserVersion(ctx)

	var warnings []string
	var landing *Snapshot
	if job.CaptureLanding {
		snap, warn := r.captureSnapshot(ctx, job, MomentLanding)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		landing = &snap
	}

	var answer CheckoutAnswer
	for {
		var err error
		answer, err = r.Prompter.CheckoutStatus()
		if err != nil {
			return fmt.Errorf("cookielab: %s: checkout prompt: %w", job.JobID, err)
		}
		if answer != AnswerWaiting {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.waitRetry()):
		}
	}

	before, warn := r.captureSnapshot(ctx, job, MomentBefore)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	var after Snapshot
	var obs Observation
	popupSeen := "Skipped"

	if answer == AnswerAtCheckout {
		seen, err := r.Prompter.PopupSeen()
		if err != nil {
			return fmt.Errorf("cookielab: %s: popup prompt: %w", job.JobID, err)
		}
		popupSeen = "No"
		if seen {
			popupSeen = "Yes"
		}

		pre := CapturePreAction(ctx, r.Session)
		if err := r.Prompter.ConfirmAction(); err != nil {
			return fmt.Errorf("cookielab: %s: action prompt: %w", job.JobID, err)
		}

		obs = Observe(ctx, r.Session, pre, job.redirectWindow(), r.ObserveTick)

		after, warn = r.captureSnapshot(ctx, job, MomentAfter)
		if warn != "" {
			warnings = append(warnings, warn)
		}
	} else {
		// Skip neutralizes the extension step: After mirrors Before.
		after = before
		after.Moment = MomentAfter
	}

	in := RowInput{
		Job:            job,
		Spec:           spec,
		Landing:        landing,
		Before:         before,
		After:          after,
		Observation:    obs,
		BrowserVersion: browserVer,
		PopupSeen:      popupSeen,
		ObservedAt:     time.Now(),
	}
	if len(warnings) > 0 {
		in.Notes = "Degraded capture: " + strings.Join(warnings, "; ")
	}

	return r.writeRows(job, in)
}

// writeRows appends the job's records in the fixed wide, summary, diagnostics
// order so partial failures leave an interpretable trail.
func (r *Runner) writeRows(job Job, in RowInput) error {
	wide, summary, diags := BuildRows(in)

	if err := r.Report.AppendRow(SheetCookieComparison, wide); err != nil {
		return fmt.Errorf("cookielab: %s: %w", job.JobID, err)
	}
	if err := r.Report.AppendRow(SheetCleanData, summary); err != nil {
		return fmt.Errorf("cookielab: %s: %w", job.JobID, err)
	}
	if err := r.Report.AppendRows(SheetDiagnostics, diags); err != nil {
		return fmt.Errorf("cookielab: %s: %w", job.JobID, err)
	}
	return nil
}

// captureSnapshot reads the cookie jar at one moment. A failed live read falls
// back to the configured store source; if that fails too, the snapshot is empty
// and the warning explains why. The job always proceeds.
func (r *Runner) captureSnapshot(ctx context.Context, job Job, moment Moment) (Snapshot, string) {
	snap := Snapshot{Moment: moment, Host: r.currentHost(ctx, job)}

	cookies, err := r.Session.Cookies(ctx)
	if err == nil {
		snap.Cookies = cookies
		return snap, ""
	}

	if r.Fallback != nil {
		fallback, ferr := r.Fallback.Cookies(ctx)
		if ferr == nil {
			snap.Cookies = fallback
			return snap, fmt.Sprintf("%s snapshot read from store after live read failed (%v)", moment, err)
		}
		return snap, fmt.Sprintf("%s snapshot empty: live read failed (%v), store read failed (%v)", moment, err, ferr)
	}
	return snap, fmt.Sprintf("%s snapshot empty: cookie read failed (%v)", moment, err)
}

func (r *Runner) currentHost(ctx context.Context, job Job) string {
	raw, err := r.Session.CurrentURL(ctx)
	if err != nil || raw == "" {
		raw = job.AffiliateLink
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}
