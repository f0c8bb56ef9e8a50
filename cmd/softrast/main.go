// Command softrast loads an OBJ or GLB model and renders it with the
// software rasterizer, either live in the terminal or headless to a PNG.
//
// Usage:
//
//	softrast [flags] model.obj
//
// Terminal controls:
//
//	w/a/s/d, arrows  spin the model
//	q / e            roll the model
//	mouse drag       spin the model
//	mouse wheel      zoom
//	space            random spin
//	f                toggle flat / Gouraud shading
//	x                toggle wireframe overlay
//	+ / -            zoom
//	p                pause the constant spin
//	r                reset spin
//	esc, ctrl+c      quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/taigrr/softrast/internal/config"
	"github.com/taigrr/softrast/internal/logger"
	"go.uber.org/zap"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [model.obj|model.glb]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flags, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "softrast:", err)
		os.Exit(1)
	}
}

func run(flags *config.Flags, args []string) error {
	cfg, cfgPath, err := config.Load(flags)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Scene.Model = args[0]
	}

	if flags.WriteConfig != "" {
		if err := cfg.SaveTo(flags.WriteConfig); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Println("wrote", flags.WriteConfig)
		return nil
	}

	// The terminal viewer owns the screen, so only headless runs log to the console.
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, cfg.Render.Headless); err != nil {
		return err
	}
	defer logger.Sync()

	if cfgPath != "" {
		logger.Info("config loaded", zap.String("path", cfgPath))
	}
	if cfg.Scene.Model == "" {
		return errors.New("no model: pass a path or set scene.model")
	}

	mesh, err := loadModel(cfg.Scene.Model, cfg.Scene.Material, logger.Log)
	if err != nil {
		return err
	}
	if cfg.Scene.FitSize > 0 {
		mesh.FitToUnit(cfg.Scene.FitSize)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Render.Headless {
		return runHeadless(ctx, cfg, mesh, logger.Log)
	}
	return runTerminal(ctx, cfg, mesh, logger.Log)
}
