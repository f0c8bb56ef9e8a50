package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/taigrr/softrast/internal/config"
	"github.com/taigrr/softrast/pkg/models"
	"go.uber.org/zap"
)

// runHeadless renders cfg.Render.Frames frames and writes the last one to
// cfg.Render.Out.
func runHeadless(ctx context.Context, cfg *config.Config, mesh *models.Mesh, log *zap.Logger) error {
	v, err := newViewer(cfg, mesh, cfg.Render.Width, cfg.Render.Height, log)
	if err != nil {
		return err
	}
	for i := range cfg.Render.Frames {
		if err := v.frame(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("interrupted, no frame written", zap.Int("frame", i))
				return nil
			}
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}

	if err := v.rast.Framebuffer().SavePNG(cfg.Render.Out); err != nil {
		return err
	}
	s := v.rast.Stats()
	log.Info("frame written",
		zap.String("path", cfg.Render.Out),
		zap.Int("frames", cfg.Render.Frames),
		zap.Stringer("shading", v.mode),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("drawn", s.Drawn),
		zap.Int("clipped", s.Clipped),
		zap.Int("culled", s.Culled),
		zap.Int("pixels", s.Pixels),
	)
	return nil
}
