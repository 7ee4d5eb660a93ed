// Package config loads SmartReader settings from a YAML file and
// SMARTREADER_* environment variables. Command-line flags are applied on
// top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Read     ReadConfig     `yaml:"read"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Classify ClassifyConfig `yaml:"classify"`
	Render   RenderConfig   `yaml:"render"`
	PDF      PDFConfig      `yaml:"pdf"`
	Distill  DistillConfig  `yaml:"distill"`
	Metadata MetadataConfig `yaml:"metadata"`
	Output   OutputConfig   `yaml:"output"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// ReadConfig holds pipeline-wide settings.
type ReadConfig struct {
	// Timeout bounds one read when the caller gives none.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type FetchConfig struct {
	UserAgent string        `yaml:"user_agent" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	// MaxBytes caps downloaded bodies (PDFs, static pages).
	MaxBytes int64 `yaml:"max_bytes" validate:"gt=0"`
}

type ClassifyConfig struct {
	ProbeTimeout time.Duration `yaml:"probe_timeout" validate:"gt=0"`
	SniffBytes   int           `yaml:"sniff_bytes" validate:"gte=8,lte=65536"`
}

// RenderConfig selects and tunes the page renderer.
type RenderConfig struct {
	Backend    string        `yaml:"backend" validate:"oneof=rod chromedp http"`
	IdleWindow time.Duration `yaml:"idle_window" validate:"gt=0"`
	MaxPages   int           `yaml:"max_pages" validate:"gte=1,lte=64"`
	// RenderShare is the part of the remaining deadline given to page load.
	RenderShare float64  `yaml:"render_share" validate:"gt=0,lte=1"`
	BlockURLs   []string `yaml:"block_urls"`
	Stealth     bool     `yaml:"stealth"`
	Headless    bool     `yaml:"headless"`
	// ChromeBin overrides browser discovery.
	ChromeBin string `yaml:"chrome_bin"`
	// Remote is a DevTools websocket URL of an already running browser.
	Remote string `yaml:"remote" validate:"omitempty,url"`
}

type PDFConfig struct {
	HeadingRatio  float64 `yaml:"heading_ratio" validate:"gt=1"`
	ParagraphGap  float64 `yaml:"paragraph_gap" validate:"gt=0"`
	LineTolerance float64 `yaml:"line_tolerance" validate:"gt=0"`
}

type DistillConfig struct {
	MinTextLen         int     `yaml:"min_text_len" validate:"gte=1"`
	TieTolerance       float64 `yaml:"tie_tolerance" validate:"gte=0,lt=1"`
	TruncatedTolerance float64 `yaml:"truncated_tolerance" validate:"gte=0,lt=1"`
	SiblingRatio       float64 `yaml:"sibling_ratio" validate:"gt=0,lte=1"`
	MaxLinkDensity     float64 `yaml:"max_link_density" validate:"gt=0,lte=1"`
	MinRepeatPages     int     `yaml:"min_repeat_pages" validate:"gte=2"`
	RepeatTolerance    float64 `yaml:"repeat_tolerance" validate:"gte=0"`
}

type MetadataConfig struct {
	TailFraction   float64 `yaml:"tail_fraction" validate:"gt=0,lte=1"`
	MinTailEntries int     `yaml:"min_tail_entries" validate:"gte=1"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: "console"},
		Read: ReadConfig{Timeout: 30 * time.Second},
		Fetch: FetchConfig{
			UserAgent: "Mozilla/5.0 (compatible; SmartReader/1.0)",
			Timeout:   30 * time.Second,
			MaxBytes:  50 << 20,
		},
		Classify: ClassifyConfig{ProbeTimeout: 10 * time.Second, SniffBytes: 1024},
		Render: RenderConfig{
			Backend:     "rod",
			IdleWindow:  500 * time.Millisecond,
			MaxPages:    4,
			RenderShare: 0.8,
			Headless:    true,
		},
		PDF: PDFConfig{HeadingRatio: 1.15, ParagraphGap: 1.5, LineTolerance: 0.3},
		Distill: DistillConfig{
			MinTextLen:         50,
			TieTolerance:       0.1,
			TruncatedTolerance: 0.25,
			SiblingRatio:       0.5,
			MaxLinkDensity:     0.5,
			MinRepeatPages:     3,
			RepeatTolerance:    2,
		},
		Metadata: MetadataConfig{TailFraction: 0.2, MinTailEntries: 2},
		Output:   OutputConfig{Dir: "output"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// envPrefix namespaces the environment overrides.
const envPrefix = "SMARTREADER_"

// ApplyEnv overrides fields from SMARTREADER_* variables. lookup is
// os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	dur("TIMEOUT", &c.Read.Timeout)
	str("USER_AGENT", &c.Fetch.UserAgent)
	str("RENDERER", &c.Render.Backend)
	num("MAX_PAGES", &c.Render.MaxPages)
	dur("IDLE_WINDOW", &c.Render.IdleWindow)
	flag("STEALTH", &c.Render.Stealth)
	flag("HEADLESS", &c.Render.Headless)
	str("CHROME_BIN", &c.Render.ChromeBin)
	str("CHROME_REMOTE", &c.Render.Remote)
	str("OUTPUT_DIR", &c.Output.Dir)
	if v, ok := lookup(envPrefix + "BLOCK_URLS"); ok {
		c.Render.BlockURLs = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Render.BlockURLs = append(c.Render.BlockURLs, p)
			}
		}
	}
	return errors.Join(errs...)
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
