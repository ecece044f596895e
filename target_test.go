package cookielab

import "testing"

func TestClassifyExactIsCaseInsensitive(t *testing.T) {
	spec := NewTargetSpec([]string{"campaign", "cjData"})

	for _, name := range []string{"campaign", "CAMPAIGN", "Campaign"} {
		canon, ok := spec.Classify(name)
		if !ok || canon != "campaign" {
			t.Fatalf("Classify(%q) = %q, %v", name, canon, ok)
		}
	}

	canon, ok := spec.Classify("cjdata")
	if !ok || canon != "cjData" {
		t.Fatalf("expected config casing, got %q, %v", canon, ok)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	spec := DefaultTargets()
	for range 3 {
		canon, ok := spec.Classify("GCLID")
		if !ok || canon != "gclid" {
			t.Fatalf("got %q, %v", canon, ok)
		}
	}
}

func TestClassifyPrefixFamilyKeepsRawName(t *testing.T) {
	spec := NewTargetSpec([]string{"_ga", "_ga_*", "AMCV_"})

	for _, name := range []string{"_ga_ABC123", "_ga_XYZ789"} {
		canon, ok := spec.Classify(name)
		if !ok {
			t.Fatalf("expected %q to match", name)
		}
		if canon != name {
			t.Fatalf("family member should keep its raw name, got %q", canon)
		}
	}

	// Trailing underscore entries are prefix families too.
	canon, ok := spec.Classify("AMCV_1234@AdobeOrg")
	if !ok || canon != "AMCV_1234@AdobeOrg" {
		t.Fatalf("got %q, %v", canon, ok)
	}
}

func TestClassifyExactWinsOverPrefix(t *testing.T) {
	spec := NewTargetSpec([]string{"_ga", "_ga_*"})
	canon, ok := spec.Classify("_GA")
	if !ok || canon != "_ga" {
		t.Fatalf("exact should win, got %q, %v", canon, ok)
	}
}

func TestClassifyNonMatches(t *testing.T) {
	spec := DefaultTargets()
	if _, ok := spec.Classify(""); ok {
		t.Fatalf("empty name must not classify")
	}
	if _, ok := spec.Classify("totally_unrelated"); ok {
		t.Fatalf("unrelated name must not classify")
	}
	var nilSpec *TargetSpec
	if _, ok := nilSpec.Classify("campaign"); ok {
		t.Fatalf("nil spec must not classify")
	}
}

func TestDefaultTargetsCoversFamilies(t *testing.T) {
	spec := DefaultTargets()
	for _, name := range []string{"campaign", "gclid", "_fbp", "_ga_G1JW3WJZZZ", "_gat_gtag_UA_1", "AMCV_xyz"} {
		if !spec.IsTarget(name) {
			t.Fatalf("expected %q to be a target", name)
		}
	}
	if spec.IsTarget("random_site_pref") {
		t.Fatalf("unexpected target match")
	}
}
