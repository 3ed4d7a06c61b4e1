package config

// Flags carries command-line values. Zero values mean "not given".
type Flags struct {
	Input          string
	OutputDir      string
	Script         string
	ScriptOutput   string
	GenerateScript bool
	DPI            int
	Workers        int
	MinPixels      int
	AutoDetect     bool
	Detector       string
	InpaintURL     string
	InpaintKey     string
	Format         string
	Quality        int
	ShowStats      bool
}

// Resolve applies non-zero flags over the config.
// CLI flags take priority over the config file.
func (c *Config) Resolve(f Flags) {
	if f.Input != "" {
		c.InputPath = f.Input
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
	if f.Script != "" {
		c.ScriptPath = f.Script
	}
	if f.ScriptOutput != "" {
		c.ScriptOutput = f.ScriptOutput
	}
	if f.GenerateScript {
		c.GenerateScript = true
	}
	if f.DPI > 0 {
		c.DPI = f.DPI
	}
	if f.Workers > 0 {
		c.Workers = f.Workers
	}
	if f.MinPixels > 0 {
		c.MinPixels = f.MinPixels
	}
	if f.AutoDetect {
		c.AutoDetect = true
	}
	if f.Detector != "" {
		c.Detector = f.Detector
	}
	if f.InpaintURL != "" {
		c.InpaintURL = f.InpaintURL
	}
	if f.InpaintKey != "" {
		c.InpaintKey = f.InpaintKey
	}
	if f.Format != "" {
		c.Format = f.Format
	}
	if f.Quality > 0 {
		c.Quality = f.Quality
	}
	if f.ShowStats {
		c.ShowStats = true
	}
}
