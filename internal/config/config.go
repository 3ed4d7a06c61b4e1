package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds everything a run needs. File values are overridden by flags.
type Config struct {
	InputPath  string `yaml:"input"`
	OutputDir  string `yaml:"output_dir"`
	ScriptPath string `yaml:"script"`

	// Script generation
	GenerateScript bool   `yaml:"generate_script"`
	ScriptOutput   string `yaml:"script_output"`

	// Rendering
	DPI            int `yaml:"dpi"`
	Workers        int `yaml:"workers"`
	MaxPagePixels  int `yaml:"max_page_pixels"` // pages above this are skipped, 0 = derived from free memory
	EditWorkers    int `yaml:"edit_workers"`
	InpaintWorkers int `yaml:"inpaint_workers"`

	// Regions
	MinPixels     int     `yaml:"min_pixels"` // threshold for rect selections and detection masks
	Padding       int     `yaml:"padding"`
	AutoDetect    bool    `yaml:"auto_detect"` // erase detected text on pages without edits
	Detector      string  `yaml:"detector"`    // contrast, ocr
	EdgeThreshold float64 `yaml:"edge_threshold"`
	MinBlockArea  int     `yaml:"min_block_area"`
	OCRLanguages  string  `yaml:"ocr_languages"`

	// Inpainting backend; empty URL selects the offline border fill
	InpaintURL     string `yaml:"inpaint_url"`
	InpaintKey     string `yaml:"inpaint_key"`
	InpaintPrompt  string `yaml:"inpaint_prompt"`
	MaxRequestKB   int    `yaml:"max_request_kb"`
	ShrinkAttempts int    `yaml:"shrink_attempts"`

	// Export
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`

	ShowStats    bool   `yaml:"stats"`
	BuildVersion string `yaml:"-"`
}

// Default returns the built-in defaults
func Default() Config {
	return Config{
		OutputDir:      "output",
		DPI:            150,
		Workers:        runtime.NumCPU(),
		EditWorkers:    2,
		InpaintWorkers: 4,
		MinPixels:      80,
		Padding:        4,
		Detector:       "contrast",
		EdgeThreshold:  30.0,
		MinBlockArea:   500,
		OCRLanguages:   "eng",
		MaxRequestKB:   4096,
		ShrinkAttempts: 3,
		Format:         "png",
	}
}

// Load reads a YAML config file on top of the defaults.
// Fields missing from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects values the engine cannot work with
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input path is empty")
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	if c.Workers <= 0 || c.EditWorkers <= 0 || c.InpaintWorkers <= 0 {
		return fmt.Errorf("worker counts must be positive")
	}
	if c.MinPixels < 0 {
		return fmt.Errorf("min pixels must not be negative, got %d", c.MinPixels)
	}
	if c.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", c.Padding)
	}
	if c.ShrinkAttempts < 0 {
		return fmt.Errorf("shrink attempts must not be negative, got %d", c.ShrinkAttempts)
	}
	return nil
}
