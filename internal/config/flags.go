package config

import "flag"

// Flags holds command-line overrides. Zero values mean "not set".
type Flags struct {
	Config      string
	Debug       bool
	Width       int
	Height      int
	Shading     string
	Workers     int
	Frames      int
	Out         string
	Headless    bool
	WriteConfig string
}

// RegisterFlags binds the viewer flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.Width, "width", 0, "Framebuffer width (headless)")
	fs.IntVar(&f.Height, "height", 0, "Framebuffer height (headless)")
	fs.StringVar(&f.Shading, "shading", "", "Shading mode: flat or gouraud")
	fs.IntVar(&f.Workers, "workers", -1, "Render goroutines (0 = GOMAXPROCS)")
	fs.IntVar(&f.Frames, "frames", 0, "Frames to render in headless mode")
	fs.StringVar(&f.Out, "out", "", "PNG output path in headless mode")
	fs.BoolVar(&f.Headless, "headless", false, "Render to a PNG instead of the terminal")
	fs.StringVar(&f.WriteConfig, "write-config", "", "Write the effective config to this path and exit")
	return f
}

// apply copies set flags over cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Width > 0 {
		cfg.Render.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Render.Height = f.Height
	}
	if f.Shading != "" {
		cfg.Render.Shading = f.Shading
	}
	if f.Workers >= 0 {
		cfg.Render.Workers = f.Workers
	}
	if f.Frames > 0 {
		cfg.Render.Frames = f.Frames
	}
	if f.Out != "" {
		cfg.Render.Out = f.Out
	}
	if f.Headless {
		cfg.Render.Headless = true
	}
}
