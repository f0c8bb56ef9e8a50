package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/softrast/internal/config"
	"github.com/taigrr/softrast/pkg/models"
	"github.com/taigrr/softrast/pkg/render"
	"go.uber.org/zap"
)

const (
	impulse  = 0.04
	zoomStep = 0.5

	// any-event mouse tracking with SGR coordinates
	mouseOn  = "\x1b[?1003h\x1b[?1006h"
	mouseOff = "\x1b[?1003l\x1b[?1006l"
)

// runTerminal shows the model in the alternate screen until ctx ends or
// the user quits.
func runTerminal(ctx context.Context, cfg *config.Config, mesh *models.Mesh, log *zap.Logger) error {
	term := uv.DefaultTerminal()

	cols, rows, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(cols, rows)
	fmt.Fprint(os.Stdout, mouseOn)
	defer func() {
		fmt.Fprint(os.Stdout, mouseOff)
		term.ExitAltScreen()
		term.ShowCursor()
		_ = term.Shutdown(context.Background())
	}()

	w, h := render.TerminalSize(cols, rows)
	v, err := newViewer(cfg, mesh, w, h, log)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.Render.FPS))
	defer ticker.Stop()
	events := term.Events()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				cols, rows = ev.Width, ev.Height
				term.Erase()
				term.Resize(cols, rows)
				v.resize(render.TerminalSize(cols, rows))
			case uv.KeyPressEvent:
				if v.handleKey(ev) {
					return nil
				}
			case uv.MouseClickEvent:
				v.press(ev.X, ev.Y)
			case uv.MouseReleaseEvent:
				v.release()
			case uv.MouseMotionEvent:
				v.drag(ev.X, ev.Y)
			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					v.zoom(zoomStep)
				case uv.MouseWheelDown:
					v.zoom(-zoomStep)
				}
			}

		case <-ticker.C:
			start := time.Now()
			if err := v.frame(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			v.rast.Framebuffer().Draw(term, uv.Rect(0, 0, cols, rows))
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
			log.Debug("frame presented", zap.Duration("took", time.Since(start)))
		}
	}
}

// handleKey applies one key press and reports whether to quit.
func (v *viewer) handleKey(ev uv.KeyPressEvent) bool {
	switch {
	case ev.MatchString("escape", "ctrl+c"):
		return true
	case ev.MatchString("q"):
		v.spin.impulse(0, 0, -impulse)
	case ev.MatchString("e"):
		v.spin.impulse(0, 0, impulse)
	case ev.MatchString("w", "up"):
		v.spin.impulse(-impulse, 0, 0)
	case ev.MatchString("s", "down"):
		v.spin.impulse(impulse, 0, 0)
	case ev.MatchString("a", "left"):
		v.spin.impulse(0, -impulse, 0)
	case ev.MatchString("d", "right"):
		v.spin.impulse(0, impulse, 0)
	case ev.MatchString("space"):
		v.spin.random()
	case ev.MatchString("f"):
		v.toggleShading()
	case ev.MatchString("x"):
		v.wireframe = !v.wireframe
	case ev.MatchString("p"):
		v.spin.paused = !v.spin.paused
	case ev.MatchString("r"):
		v.spin.reset()
	case ev.MatchString("+", "="):
		v.zoom(zoomStep)
	case ev.MatchString("-", "_"):
		v.zoom(-zoomStep)
	}
	return false
}
