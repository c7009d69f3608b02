package pdf

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/api/metrics"
	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

// Generator renders transfers and claims with the registered templates.
type Generator struct {
	registry *Registry
	log      zerolog.Logger
	now      func() time.Time
}

func NewGenerator(registry *Registry, log zerolog.Logger) *Generator {
	return &Generator{registry: registry, log: log, now: time.Now}
}

func (g *Generator) Transfer(ctx context.Context, t *domain.InternalTransfer) ([]byte, error) {
	return g.render(ctx, TemplateTransfer, "Internal Transfer "+t.ID, t)
}

func (g *Generator) Claim(ctx context.Context, c *domain.WarrantyClaim) ([]byte, error) {
	return g.render(ctx, TemplateClaim, "Warranty Claim "+c.ID, c)
}

func (g *Generator) render(ctx context.Context, name, title string, record any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := g.renderTemplate(name, title, record)
	metrics.PDFRenderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PDFRenderTotal.WithLabelValues(name, "error").Inc()
		g.log.Error().Err(err).Str("template", name).Msg("pdf render failed")
		return nil, err
	}
	metrics.PDFRenderTotal.WithLabelValues(name, "ok").Inc()
	g.log.Debug().Str("template", name).Int("bytes", len(out)).Msg("pdf rendered")
	return out, nil
}

func (g *Generator) renderTemplate(name, title string, record any) ([]byte, error) {
	tpl, err := g.registry.Get(name)
	if err != nil {
		return nil, err
	}
	data, err := ToData(record)
	if err != nil {
		return nil, err
	}
	opts := RenderOptions{Title: title, Now: g.now()}
	if dir := g.registry.Dir(); dir != "" {
		opts.Assets = os.DirFS(dir)
	}
	return Render(tpl, data, opts)
}

var _ ports.PDFRenderer = (*Generator)(nil)
