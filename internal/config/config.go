// Package config loads and validates application configuration. Configuration
// is read once per run and treated as immutable afterwards; invalid scoring
// configuration fails the run at load time rather than producing
// silently-wrong scores.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Detect DetectConfig `yaml:"detect" mapstructure:"detect"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the read-only status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// FetchConfig configures bulk data downloads.
type FetchConfig struct {
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TempDir        string  `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// DetectConfig configures the transition detection engine.
type DetectConfig struct {
	TimingWindow   TimingWindowConfig   `yaml:"timing_window" mapstructure:"timing_window"`
	VendorMatching VendorMatchingConfig `yaml:"vendor_matching" mapstructure:"vendor_matching"`
	Scoring        ScoringConfig        `yaml:"scoring" mapstructure:"scoring"`
	Confidence     ConfidenceConfig     `yaml:"confidence" mapstructure:"confidence"`
	Evidence       EvidenceConfig       `yaml:"evidence" mapstructure:"evidence"`
	CandidatePool  CandidatePoolConfig  `yaml:"candidate_pool" mapstructure:"candidate_pool"`
	BatchSize      int                  `yaml:"batch_size" mapstructure:"batch_size"`
	Workers        int                  `yaml:"workers" mapstructure:"workers"`
	// Quality gates, evaluated at run level.
	MinCompletionRate float64 `yaml:"min_completion_rate" mapstructure:"min_completion_rate"`
	MinMatchRate      float64 `yaml:"min_match_rate" mapstructure:"min_match_rate"`
}

// TimingWindowConfig bounds the candidate window in months after award
// completion. Contracts outside the window are never candidates.
type TimingWindowConfig struct {
	MinMonths int `yaml:"min_months" mapstructure:"min_months"`
	MaxMonths int `yaml:"max_months" mapstructure:"max_months"`
}

// VendorMatchingConfig configures the identifier cascade and fuzzy fallback.
type VendorMatchingConfig struct {
	PriorityOrder           []string `yaml:"priority_order" mapstructure:"priority_order"`
	FuzzyThreshold          float64  `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	FuzzySecondaryThreshold float64  `yaml:"fuzzy_secondary_threshold" mapstructure:"fuzzy_secondary_threshold"`
	UseSecondaryThreshold   bool     `yaml:"use_secondary_threshold" mapstructure:"use_secondary_threshold"`
}

// ScoringConfig holds the baseline prior, per-signal weights, and the fixed
// competition-category scores.
type ScoringConfig struct {
	Baseline    float64            `yaml:"baseline" mapstructure:"baseline"`
	Weights     WeightConfig       `yaml:"weights" mapstructure:"weights"`
	Competition CompetitionScores  `yaml:"competition_scores" mapstructure:"competition_scores"`
	Timing      TimingDecayConfig  `yaml:"timing_decay" mapstructure:"timing_decay"`
	Patent      PatentSignalConfig `yaml:"patent" mapstructure:"patent"`
}

// WeightConfig is the per-signal weight set. A zero weight disables the
// signal.
type WeightConfig struct {
	Agency         float64 `yaml:"agency" mapstructure:"agency"`
	Timing         float64 `yaml:"timing" mapstructure:"timing"`
	Competition    float64 `yaml:"competition" mapstructure:"competition"`
	Patent         float64 `yaml:"patent" mapstructure:"patent"`
	CET            float64 `yaml:"cet" mapstructure:"cet"`
	TextSimilarity float64 `yaml:"text_similarity" mapstructure:"text_similarity"`
}

// Sum returns the total of all signal weights.
func (w WeightConfig) Sum() float64 {
	return w.Agency + w.Timing + w.Competition + w.Patent + w.CET + w.TextSimilarity
}

// CompetitionScores maps each competition category to a fixed signal value.
type CompetitionScores struct {
	SoleSource float64 `yaml:"sole_source" mapstructure:"sole_source"`
	Limited    float64 `yaml:"limited" mapstructure:"limited"`
	FullOpen   float64 `yaml:"full_open" mapstructure:"full_open"`
}

// TimingDecayConfig shapes the timing-proximity decay curve. The curve must
// be monotonically non-increasing in elapsed time, equal 1.0 at or before
// PeakMonths, and approach Floor at the window boundary.
type TimingDecayConfig struct {
	Curve          string  `yaml:"curve" mapstructure:"curve"` // "linear" or "exponential"
	PeakMonths     float64 `yaml:"peak_months" mapstructure:"peak_months"`
	Floor          float64 `yaml:"floor" mapstructure:"floor"`
	HalfLifeMonths float64 `yaml:"half_life_months" mapstructure:"half_life_months"`
}

// PatentSignalConfig configures the patent signal.
type PatentSignalConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ConfidenceConfig holds the tier thresholds.
type ConfidenceConfig struct {
	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	LikelyThreshold float64 `yaml:"likely_threshold" mapstructure:"likely_threshold"`
}

// EvidenceConfig holds the evidence-generation cutoff.
type EvidenceConfig struct {
	ScoreThreshold float64 `yaml:"score_threshold" mapstructure:"score_threshold"`
}

// CandidatePoolConfig configures the cheap prefilters applied before vendor
// resolution.
type CandidatePoolConfig struct {
	// RestrictAgency limits the pool to contracts whose awarding or funding
	// agency matches the award agency.
	RestrictAgency bool `yaml:"restrict_agency" mapstructure:"restrict_agency"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SBIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// DefaultDetect returns the shipped detection configuration. It mirrors the
// viper defaults and is the base presets overlay onto.
func DefaultDetect() DetectConfig {
	return DetectConfig{
		TimingWindow: TimingWindowConfig{MinMonths: 0, MaxMonths: 24},
		VendorMatching: VendorMatchingConfig{
			PriorityOrder:           []string{"uei", "cage", "duns", "fuzzy_name"},
			FuzzyThreshold:          0.85,
			FuzzySecondaryThreshold: 0.70,
		},
		Scoring: ScoringConfig{
			Baseline: 0.15,
			Weights: WeightConfig{
				Agency:      0.30,
				Timing:      0.25,
				Competition: 0.15,
				Patent:      0.10,
				CET:         0.05,
			},
			Competition: CompetitionScores{SoleSource: 1.0, Limited: 0.6, FullOpen: 0.3},
			Timing:      TimingDecayConfig{Curve: "linear", PeakMonths: 3, Floor: 0.05, HalfLifeMonths: 6},
			Patent:      PatentSignalConfig{SimilarityThreshold: 0.70},
		},
		Confidence:        ConfidenceConfig{HighThreshold: 0.85, LikelyThreshold: 0.65},
		Evidence:          EvidenceConfig{ScoreThreshold: 0.60},
		CandidatePool:     CandidatePoolConfig{RestrictAgency: true},
		BatchSize:         1000,
		Workers:           8,
		MinCompletionRate: 0.99,
		MinMatchRate:      0.90,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "sbir.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("fetch.user_agent", "sbir-analytics/1.0")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.requests_per_sec", 2.0)
	v.SetDefault("fetch.temp_dir", "/tmp/sbir-analytics")

	v.SetDefault("detect.timing_window.min_months", 0)
	v.SetDefault("detect.timing_window.max_months", 24)

	v.SetDefault("detect.vendor_matching.priority_order", []string{"uei", "cage", "duns", "fuzzy_name"})
	v.SetDefault("detect.vendor_matching.fuzzy_threshold", 0.85)
	v.SetDefault("detect.vendor_matching.fuzzy_secondary_threshold", 0.70)
	v.SetDefault("detect.vendor_matching.use_secondary_threshold", false)

	v.SetDefault("detect.scoring.baseline", 0.15)
	v.SetDefault("detect.scoring.weights.agency", 0.30)
	v.SetDefault("detect.scoring.weights.timing", 0.25)
	v.SetDefault("detect.scoring.weights.competition", 0.15)
	v.SetDefault("detect.scoring.weights.patent", 0.10)
	v.SetDefault("detect.scoring.weights.cet", 0.05)
	v.SetDefault("detect.scoring.weights.text_similarity", 0.0)
	v.SetDefault("detect.scoring.competition_scores.sole_source", 1.0)
	v.SetDefault("detect.scoring.competition_scores.limited", 0.6)
	v.SetDefault("detect.scoring.competition_scores.full_open", 0.3)
	v.SetDefault("detect.scoring.timing_decay.curve", "linear")
	v.SetDefault("detect.scoring.timing_decay.peak_months", 3)
	v.SetDefault("detect.scoring.timing_decay.floor", 0.05)
	v.SetDefault("detect.scoring.timing_decay.half_life_months", 6)
	v.SetDefault("detect.scoring.patent.similarity_threshold", 0.70)

	v.SetDefault("detect.confidence.high_threshold", 0.85)
	v.SetDefault("detect.confidence.likely_threshold", 0.65)
	v.SetDefault("detect.evidence.score_threshold", 0.60)

	v.SetDefault("detect.candidate_pool.restrict_agency", true)
	v.SetDefault("detect.batch_size", 1000)
	v.SetDefault("detect.workers", 8)
	v.SetDefault("detect.min_completion_rate", 0.99)
	v.SetDefault("detect.min_match_rate", 0.90)
}

// Validate checks the detection configuration for internal consistency.
// Called once at run start; any violation aborts before scoring begins.
func (d *DetectConfig) Validate() error {
	var errs []string

	if d.TimingWindow.MinMonths < 0 {
		errs = append(errs, "timing_window.min_months must be >= 0")
	}
	if d.TimingWindow.MaxMonths <= d.TimingWindow.MinMonths {
		errs = append(errs, "timing_window.max_months must be > min_months")
	}

	w := d.Scoring.Weights
	for name, val := range map[string]float64{
		"agency":          w.Agency,
		"timing":          w.Timing,
		"competition":     w.Competition,
		"patent":          w.Patent,
		"cet":             w.CET,
		"text_similarity": w.TextSimilarity,
	} {
		if val < 0 {
			errs = append(errs, fmt.Sprintf("scoring.weights.%s must be >= 0", name))
		}
	}
	if d.Scoring.Baseline < 0 || d.Scoring.Baseline >= 1 {
		errs = append(errs, "scoring.baseline must be in [0, 1)")
	}
	// The maximum achievable composite score must not exceed 1.0.
	if maxScore := d.Scoring.Baseline + w.Sum(); maxScore > 1.0+1e-9 {
		errs = append(errs, fmt.Sprintf("scoring.baseline + weight sum must be <= 1.0, got %.4f", maxScore))
	}
	if w.Sum() <= 0 {
		errs = append(errs, "scoring weight sum must be > 0")
	}

	cs := d.Scoring.Competition
	for name, val := range map[string]float64{
		"sole_source": cs.SoleSource,
		"limited":     cs.Limited,
		"full_open":   cs.FullOpen,
	} {
		if val < 0 || val > 1 {
			errs = append(errs, fmt.Sprintf("competition_scores.%s must be in [0, 1]", name))
		}
	}
	if cs.SoleSource < cs.Limited || cs.SoleSource < cs.FullOpen {
		errs = append(errs, "competition_scores.sole_source must be the highest category")
	}

	td := d.Scoring.Timing
	if td.Curve != "linear" && td.Curve != "exponential" {
		errs = append(errs, fmt.Sprintf("timing_decay.curve must be linear or exponential, got %q", td.Curve))
	}
	if td.Floor < 0 || td.Floor >= 1 {
		errs = append(errs, "timing_decay.floor must be in [0, 1)")
	}
	if td.PeakMonths < 0 || td.PeakMonths > float64(d.TimingWindow.MaxMonths) {
		errs = append(errs, "timing_decay.peak_months must be within the timing window")
	}
	if td.Curve == "exponential" && td.HalfLifeMonths <= 0 {
		errs = append(errs, "timing_decay.half_life_months must be > 0 for exponential curve")
	}

	vm := d.VendorMatching
	if vm.FuzzyThreshold <= 0 || vm.FuzzyThreshold > 1 {
		errs = append(errs, "vendor_matching.fuzzy_threshold must be in (0, 1]")
	}
	if vm.FuzzySecondaryThreshold <= 0 || vm.FuzzySecondaryThreshold > vm.FuzzyThreshold {
		errs = append(errs, "vendor_matching.fuzzy_secondary_threshold must be in (0, fuzzy_threshold]")
	}
	for _, p := range vm.PriorityOrder {
		switch p {
		case "uei", "cage", "duns", "fuzzy_name":
		default:
			errs = append(errs, fmt.Sprintf("vendor_matching.priority_order: unknown stage %q", p))
		}
	}
	if len(vm.PriorityOrder) == 0 {
		errs = append(errs, "vendor_matching.priority_order must not be empty")
	}

	c := d.Confidence
	if c.HighThreshold <= 0 || c.HighThreshold > 1 {
		errs = append(errs, "confidence.high_threshold must be in (0, 1]")
	}
	if c.LikelyThreshold <= 0 || c.LikelyThreshold >= c.HighThreshold {
		errs = append(errs, "confidence.likely_threshold must be in (0, high_threshold)")
	}

	if d.Evidence.ScoreThreshold < 0 || d.Evidence.ScoreThreshold > 1 {
		errs = append(errs, "evidence.score_threshold must be in [0, 1]")
	}

	if d.BatchSize <= 0 {
		errs = append(errs, "batch_size must be > 0")
	}
	if d.Workers <= 0 {
		errs = append(errs, "workers must be > 0")
	}
	if d.MinCompletionRate < 0 || d.MinCompletionRate > 1 {
		errs = append(errs, "min_completion_rate must be in [0, 1]")
	}
	if d.MinMatchRate < 0 || d.MinMatchRate > 1 {
		errs = append(errs, "min_match_rate must be in [0, 1]")
	}
	if d.Scoring.Patent.SimilarityThreshold < 0 || d.Scoring.Patent.SimilarityThreshold > 1 {
		errs = append(errs, "patent.similarity_threshold must be in [0, 1]")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: detect validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MaxScore returns the highest composite score the configured weights can
// produce, before clamping.
func (d *DetectConfig) MaxScore() float64 {
	return math.Min(d.Scoring.Baseline+d.Scoring.Weights.Sum(), 1.0)
}

// Hash returns a stable hex digest of the detection configuration, recorded
// on each run so output can be tied back to the exact settings that
// produced it.
func (d *DetectConfig) Hash() string {
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
