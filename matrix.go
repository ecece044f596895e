package cookielab

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// flexString decodes any YAML scalar (7, 1.2, quoted text) as its literal
// text, since extension versions and names are often written unquoted.
type flexString string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *flexString) UnmarshalYAML(value *yaml.Node) error {
	*s = flexString(strings.TrimSpace(value.Value))
	return nil
}

// PrivacyLevel configures a browser privacy mode for a run.
type PrivacyLevel struct {
	Name  flexString     `yaml:"name"`
	Flags []string       `yaml:"flags"`
	Prefs map[string]any `yaml:"prefs"`
}

// MatrixBrowser is one browser entry of the job matrix.
type MatrixBrowser struct {
	Name    flexString   `yaml:"name"`
	Binary  flexString   `yaml:"binary"`
	Privacy PrivacyLevel `yaml:"privacy"`
}

// MatrixExtension is one extension entry of the job matrix. Paths are per
// browser family; an extension without a compatible package is skipped for
// that browser.
type MatrixExtension struct {
	Name         flexString `yaml:"name"`
	Version      flexString `yaml:"version"`
	FirefoxPath  flexString `yaml:"firefox_path"`
	ChromiumPath flexString `yaml:"chromium_path"`
	// ChromiumExtensionID pre-allows the extension in incognito runs.
	ChromiumExtensionID flexString `yaml:"chromium_extension_id"`
}

// Matrix is the browsers × extensions × links job configuration.
type Matrix struct {
	MasterWorkbook string            `yaml:"master_workbook"`
	OutputWorkbook string            `yaml:"output_workbook"`
	Browsers       []MatrixBrowser   `yaml:"browsers"`
	Extensions     []MatrixExtension `yaml:"extensions"`
	Links          []string          `yaml:"links"`

	// Targets overrides the default cookie taxonomy when set.
	Targets           []string `yaml:"targets"`
	RedirectWindowSec float64  `yaml:"redirect_window_sec"`
	CaptureLanding    bool     `yaml:"capture_landing"`
}

// LoadMatrix reads and parses a matrix YAML file.
func LoadMatrix(path string) (*Matrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cookielab: read matrix: %w", err)
	}
	var m Matrix
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("cookielab: parse matrix: %w", err)
	}
	return &m, nil
}

// TargetSpec returns the matrix's taxonomy, or the default one.
func (m *Matrix) TargetSpec() *TargetSpec {
	if len(m.Targets) > 0 {
		return NewTargetSpec(m.Targets)
	}
	return DefaultTargets()
}

// Validate reports non-fatal problems: extension package paths that do not
// exist and links that do not look like URLs.
func (m *Matrix) Validate() []string {
	var problems []string
	for _, e := range m.Extensions {
		for _, pkg := range []struct{ key, path string }{
			{"firefox_path", string(e.FirefoxPath)},
			{"chromium_path", string(e.ChromiumPath)},
		} {
			if pkg.path == "" {
				continue
			}
			if _, err := os.Stat(pkg.path); err != nil {
				problems = append(problems, fmt.Sprintf("%s [%s]: %s", e.Name, pkg.key, pkg.path))
			}
		}
	}
	for i, link := range m.Links {
		if !strings.Contains(link, "http") {
			problems = append(problems, fmt.Sprintf("link #%d looks odd: %q", i+1, link))
		}
	}
	return problems
}

// packagePath picks the extension package compatible with the browser, or "".
func (e MatrixExtension) packagePath(b Browser) string {
	if b == BrowserFirefox {
		return string(e.FirefoxPath)
	}
	if b.IsChromiumFamily() {
		return string(e.ChromiumPath)
	}
	return ""
}

// ResumeOptions restarts a batch partway through the matrix. Offsets apply to
// the first browser pass only; later passes start from the beginning, matching
// a resume after an interrupted run.
type ResumeOptions struct {
	StartBrowser   string
	StartExtension string
	// StartLink is 1-based; zero means the first link.
	StartLink int
	// OnlyExtension restricts the batch to one extension; expansion stops
	// after the first browser pass that runs it.
	OnlyExtension string
}

// Jobs expands the matrix into an ordered job list. Extensions without a
// package for a browser are skipped. The extension ordinal is its 1-based
// position in the full extension list, stable across browsers.
func (m *Matrix) Jobs(opts ResumeOptions) ([]Job, error) {
	if len(m.Browsers) == 0 || len(m.Extensions) == 0 || len(m.Links) == 0 {
		return nil, fmt.Errorf("cookielab: matrix must include non-empty browsers, extensions and links")
	}

	bStart := 0
	if opts.StartBrowser != "" {
		bStart = -1
		for i, b := range m.Browsers {
			if strings.EqualFold(string(b.Name), opts.StartBrowser) {
				bStart = i
				break
			}
		}
		if bStart < 0 {
			return nil, fmt.Errorf("cookielab: browser %q not found in matrix", opts.StartBrowser)
		}
	}

	eStart := 0
	if opts.StartExtension != "" {
		eStart = -1
		for i, e := range m.Extensions {
			if strings.EqualFold(string(e.Name), opts.StartExtension) {
				eStart = i
				break
			}
		}
		if eStart < 0 {
			return nil, fmt.Errorf("cookielab: extension %q not found in matrix", opts.StartExtension)
		}
	}

	lStart := 0
	if opts.StartLink > 0 {
		if opts.StartLink > len(m.Links) {
			return nil, fmt.Errorf("cookielab: start link must be between 1 and %d", len(m.Links))
		}
		lStart = opts.StartLink - 1
	}

	window := time.Duration(m.RedirectWindowSec * float64(time.Second))

	var jobs []Job
	jobNo := 0
	for bi := bStart; bi < len(m.Browsers); bi++ {
		bcfg := m.Browsers[bi]
		browser := Browser(strings.ToLower(string(bcfg.Name)))

		ei0 := 0
		if bi == bStart {
			ei0 = eStart
		}
		jobsBefore := len(jobs)
		for ei := ei0; ei < len(m.Extensions); ei++ {
			ext := m.Extensions[ei]
			if opts.OnlyExtension != "" && !strings.EqualFold(string(ext.Name), opts.OnlyExtension) {
				continue
			}
			pkg := ext.packagePath(browser)
			if pkg == "" {
				continue
			}

			li0 := 0
			if bi == bStart && ei == eStart {
				li0 = lStart
			}
			for li := li0; li < len(m.Links); li++ {
				jobNo++
				jobs = append(jobs, Job{
					JobID: fmt.Sprintf("job-%s-%s-%04d",
						strings.ToLower(string(bcfg.Name)),
						strings.ReplaceAll(strings.ToLower(string(ext.Name)), " ", "_"),
						jobNo),
					Browser:          browser,
					BrowserBinary:    string(bcfg.Binary),
					ExtensionName:    string(ext.Name),
					ExtensionVersion: string(ext.Version),
					ExtensionPath:    pkg,
					ExtensionID:      string(ext.ChromiumExtensionID),
					ExtensionOrdinal: ei + 1,
					AffiliateLink:    m.Links[li],
					PrivacyName:      string(bcfg.Privacy.Name),
					PrivacyFlags:     bcfg.Privacy.Flags,
					PrivacyPrefs:     bcfg.Privacy.Prefs,
					RedirectWindow:   window,
					CaptureLanding:   m.CaptureLanding,
				})
			}
		}
		// An only-extension batch is one browser's worth of links; quit once
		// a browser actually ran it.
		if opts.OnlyExtension != "" && len(jobs) > jobsBefore {
			break
		}
	}
	return jobs, nil
}
