package pipeline

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/halldor/pdfgraft/pkg/graft"
	"github.com/halldor/pdfgraft/pkg/ocr"
)

// InvalidPolicy decides what happens when the assembled document fails the
// output validator. The zero value is invalid on purpose: the choice between
// aborting and emitting a non-conformant document must never be silent.
type InvalidPolicy int

const (
	invalidUnset InvalidPolicy = iota
	// InvalidAbort discards the output and reports overall failure.
	InvalidAbort
	// InvalidEmit writes the best-effort document and records a warning.
	InvalidEmit
)

// ParseInvalidPolicy maps the config-file and flag spelling to a policy.
func ParseInvalidPolicy(s string) (InvalidPolicy, error) {
	switch s {
	case "abort":
		return InvalidAbort, nil
	case "emit":
		return InvalidEmit, nil
	default:
		return invalidUnset, fmt.Errorf("unknown on-invalid policy %q (want abort or emit)", s)
	}
}

// Config is the immutable per-run configuration snapshot. It is constructed
// once, validated, and passed by value into every pipeline and scheduler
// call; nothing mutates it afterwards.
type Config struct {
	Engine    ocr.Engine // Recognition adapter; required
	Languages []string   // Engine language hints
	DPI       int        // Recognition raster resolution (default 300)

	Deskew      bool    // Normalize skew before recognition
	Despeckle   bool    // Remove isolated noise before recognition
	CropMargins bool    // Trim empty borders before recognition
	MaxSkew     float64 // Largest correctable skew in degrees

	Force          bool          // Reprocess pages that already carry text
	Workers        int           // Worker pool size (default NumCPU)
	PageTimeout    time.Duration // Per-page deadline; 0 disables
	AbortOnFailure bool          // Escalate any page failure to document-fatal
	OnInvalid      InvalidPolicy // Policy when output validation fails

	LayerName string           // Base name of the grafted layer
	Font      graft.FontConfig // Font for the invisible text
	Debug     bool             // Render the text layer visibly for inspection

	// OnPage, when set, is called once per completed page from the worker
	// that processed it. Used for progress reporting; must be safe for
	// concurrent calls.
	OnPage func(Outcome)

	Log zerolog.Logger
}

// DefaultConfig returns a config with sensible defaults and no engine.
func DefaultConfig() Config {
	return Config{
		DPI:         300,
		MaxSkew:     5,
		Workers:     runtime.NumCPU(),
		PageTimeout: 3 * time.Minute,
		OnInvalid:   InvalidAbort,
		LayerName:   "OCR Text",
		Font:        graft.DefaultFont,
		Log:         zerolog.Nop(),
	}
}

// Validate checks the parts of the config that have no usable default.
func (c Config) Validate() error {
	if c.Engine == nil {
		return fmt.Errorf("config: recognition engine is required")
	}
	if c.OnInvalid == invalidUnset {
		return fmt.Errorf("config: on-invalid policy must be set to abort or emit")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: worker count must be at least 1, got %d", c.Workers)
	}
	if c.DPI < 1 {
		return fmt.Errorf("config: recognition DPI must be positive, got %d", c.DPI)
	}
	if c.LayerName == "" {
		return fmt.Errorf("config: layer name must not be empty")
	}
	return nil
}

// FileConfig is the YAML form of the run configuration.
type FileConfig struct {
	Engine      string          `yaml:"engine"` // tesseract or docai
	Languages   []string        `yaml:"languages"`
	DPI         int             `yaml:"dpi"`
	Deskew      bool            `yaml:"deskew"`
	Despeckle   bool            `yaml:"despeckle"`
	CropMargins bool            `yaml:"crop_margins"`
	MaxSkew     float64         `yaml:"max_skew"`
	Force       bool            `yaml:"force"`
	Workers     int             `yaml:"workers"`
	PageTimeout string          `yaml:"page_timeout"`
	AbortOnFail bool            `yaml:"abort_on_failure"`
	OnInvalid   string          `yaml:"on_invalid"`
	LayerName   string          `yaml:"layer_name"`
	DocAI       ocr.DocAIConfig `yaml:"docai"`
}

// LoadFileConfig reads a YAML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// Apply overlays the file values onto a Config. Zero values in the file keep
// the config's existing settings; the engine itself is constructed by the
// caller since it may need credentials and a context.
func (fc FileConfig) Apply(c Config) (Config, error) {
	if len(fc.Languages) > 0 {
		c.Languages = fc.Languages
	}
	if fc.DPI > 0 {
		c.DPI = fc.DPI
	}
	if fc.MaxSkew > 0 {
		c.MaxSkew = fc.MaxSkew
	}
	if fc.Workers > 0 {
		c.Workers = fc.Workers
	}
	if fc.LayerName != "" {
		c.LayerName = fc.LayerName
	}
	if fc.PageTimeout != "" {
		d, err := time.ParseDuration(fc.PageTimeout)
		if err != nil {
			return c, fmt.Errorf("config: bad page_timeout: %w", err)
		}
		c.PageTimeout = d
	}
	if fc.OnInvalid != "" {
		policy, err := ParseInvalidPolicy(fc.OnInvalid)
		if err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
		c.OnInvalid = policy
	}
	c.Deskew = c.Deskew || fc.Deskew
	c.Despeckle = c.Despeckle || fc.Despeckle
	c.CropMargins = c.CropMargins || fc.CropMargins
	c.Force = c.Force || fc.Force
	c.AbortOnFailure = c.AbortOnFailure || fc.AbortOnFail
	return c, nil
}
