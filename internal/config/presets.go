package config

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// presetOverrides is the subset of DetectConfig a preset may override.
// Pointer fields distinguish "not set" from an explicit zero.
type presetOverrides struct {
	TimingWindow *TimingWindowConfig `yaml:"timing_window"`
	VendorMatching *struct {
		FuzzyThreshold          *float64 `yaml:"fuzzy_threshold"`
		FuzzySecondaryThreshold *float64 `yaml:"fuzzy_secondary_threshold"`
		UseSecondaryThreshold   *bool    `yaml:"use_secondary_threshold"`
	} `yaml:"vendor_matching"`
	Evidence *struct {
		ScoreThreshold *float64 `yaml:"score_threshold"`
	} `yaml:"evidence"`
	CandidatePool *struct {
		RestrictAgency *bool `yaml:"restrict_agency"`
	} `yaml:"candidate_pool"`
}

// builtinPresets are the named configuration bundles shipped with the tool.
// "precision" matches the defaults; "discovery" widens the net for
// exploratory runs.
const builtinPresets = `
precision:
  vendor_matching:
    use_secondary_threshold: false
discovery:
  timing_window:
    min_months: 0
    max_months: 36
  vendor_matching:
    use_secondary_threshold: true
  evidence:
    score_threshold: 0.50
  candidate_pool:
    restrict_agency: false
`

// ApplyPreset overlays a named preset onto the detection config. Presets are
// a convenience only; the config is re-validated by the caller afterwards.
func ApplyPreset(d *DetectConfig, name string, presetsFile string) error {
	presets := map[string]presetOverrides{}
	if err := yaml.Unmarshal([]byte(builtinPresets), &presets); err != nil {
		return eris.Wrap(err, "config: parse builtin presets")
	}

	if presetsFile != "" {
		data, err := os.ReadFile(presetsFile)
		if err != nil {
			return eris.Wrapf(err, "config: read presets file %s", presetsFile)
		}
		extra := map[string]presetOverrides{}
		if err := yaml.Unmarshal(data, &extra); err != nil {
			return eris.Wrapf(err, "config: parse presets file %s", presetsFile)
		}
		for k, v := range extra {
			presets[k] = v
		}
	}

	p, ok := presets[name]
	if !ok {
		return eris.Errorf("config: unknown preset %q (have: %s)", name, presetNames(presets))
	}

	if p.TimingWindow != nil {
		d.TimingWindow = *p.TimingWindow
	}
	if p.VendorMatching != nil {
		if p.VendorMatching.FuzzyThreshold != nil {
			d.VendorMatching.FuzzyThreshold = *p.VendorMatching.FuzzyThreshold
		}
		if p.VendorMatching.FuzzySecondaryThreshold != nil {
			d.VendorMatching.FuzzySecondaryThreshold = *p.VendorMatching.FuzzySecondaryThreshold
		}
		if p.VendorMatching.UseSecondaryThreshold != nil {
			d.VendorMatching.UseSecondaryThreshold = *p.VendorMatching.UseSecondaryThreshold
		}
	}
	if p.Evidence != nil && p.Evidence.ScoreThreshold != nil {
		d.Evidence.ScoreThreshold = *p.Evidence.ScoreThreshold
	}
	if p.CandidatePool != nil && p.CandidatePool.RestrictAgency != nil {
		d.CandidatePool.RestrictAgency = *p.CandidatePool.RestrictAgency
	}

	return nil
}

func presetNames(presets map[string]presetOverrides) string {
	names := make([]string, 0, len(presets))
	for k := range presets {
		names = append(names, k)
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
