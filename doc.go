// Package cookielab audits how browser extensions mutate affiliate and marketing
// cookies during a manually driven checkout flow. It captures cookie snapshots around
// an extension-triggered action, classifies them against a target taxonomy, diffs the
// before/after state, watches the browser for redirects and new tabs, and appends the
// results to a spreadsheet report.
//
// The library drives a human-in-the-loop session: the operator navigates to checkout
// while cookielab takes the snapshots. It is intended for local QA tooling, not for
// server contexts.
package cookielab
