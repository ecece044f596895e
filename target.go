package cookielab

import "strings"

// TargetSpec is the taxonomy of cookie names the audit cares about. It matches a
// raw cookie name either exactly (case-insensitive, reporting the configured
// casing) or by prefix family (entries ending in "*" or "_", reporting the raw
// observed name so each family member gets its own column).
//
// Exact matches are checked before prefix families; the first matching prefix
// wins. A TargetSpec is immutable after NewTargetSpec and safe for concurrent use.
type TargetSpec struct {
	exact    map[string]string // lower-cased name -> canonical config casing
	prefixes []string          // lower-cased, in config order
}

// NewTargetSpec builds a TargetSpec from taxonomy entries. An entry ending in "*"
// or "_" declares a prefix family; anything else is an exact name.
func NewTargetSpec(entries []string) *TargetSpec {
	s := &TargetSpec{exact: make(map[string]string, len(entries))}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		switch {
		case strings.HasSuffix(e, "*"):
			s.prefixes = append(s.prefixes, strings.ToLower(e[:len(e)-1]))
		case strings.HasSuffix(e, "_"):
			s.prefixes = append(s.prefixes, strings.ToLower(e))
		default:
			lower := strings.ToLower(e)
			if _, ok := s.exact[lower]; !ok {
				s.exact[lower] = e
			}
		}
	}
	return s
}

// Classify maps a raw cookie name to its canonical reporting key. It returns
// ("", false) for empty names and for names outside the taxonomy.
func (s *TargetSpec) Classify(name string) (string, bool) {
	if s == nil || name == "" {
		return "", false
	}
	lower := strings.ToLower(name)
	if canon, ok := s.exact[lower]; ok {
		return canon, true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(lower, p) {
			return name, true
		}
	}
	return "", false
}

// IsTarget reports whether name belongs to the taxonomy.
func (s *TargetSpec) IsTarget(name string) bool {
	_, ok := s.Classify(name)
	return ok
}

// defaultTargetOrder is the stock affiliate/campaign/analytics taxonomy. Entries
// ending in "*" or "_" are prefix families.
var defaultTargetOrder = []string{
	"NV_MC_LC", "NV_MC_FC", "NV_ECM_TK_LC",
	"__attentive_utm_param_campaign", "__attentive_utm_param_source", "__attentive_utm_param_medium",
	"__attentive_utm_param_term", "__attentive_utm_param_content",
	"campaign", "campaign_id", "campaign_date", "campaign_source", "campaign_medium", "campaign_name",
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"affid", "aff_id", "affiliate", "affiliate_id", "affiliate_source", "affsource", "aff_source", "affname",
	"aff_sub", "aff_sub2", "aff_sub3", "aff_sub4", "aff_sub5", "subid", "sub_id",
	"awinaffid", "awcid", "awcr", "aw_referrer", "aw_click_id",
	"cjevent", "cjData",
	"irclickid", "irgwc", "irpid", "iradid", "iradname",
	"sscid", "scid",
	"prms", "prm_expid", "prm_click",
	"gclid", "gclsrc", "dclid", "fbclid", "msclkid", "ttclid", "twclid", "yclid",
	"_ga", "_ga_*", "_gid", "_gat", "_gat_*", "_gcl_au", "_gcl_aw", "_gcl_dc",
	"_fbp", "_fbc", "_uetsid", "_uetvid", "_tt_enable_cookie", "_ttp", "_pin_unauth", "_rdt_uuid",
	"AMCV_", "s_cc", "s_sq", "mbox", "mboxEdgeCluster",
	"ref", "referrer", "source", "campaignCode", "promo", "promocode", "coupon", "coupon_code",
	"session_id", "sessionid", "sid",
}

// DefaultTargets returns the stock taxonomy of affiliate, campaign, click-ID and
// analytics cookie names.
func DefaultTargets() *TargetSpec {
	return NewTargetSpec(defaultTargetOrder)
}
