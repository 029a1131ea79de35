package exchange

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/alejandrodnm/castlot/internal/ports"
)

// ComposeDraft pide el draft al generador y cae al fallback si falla.
// Nunca devuelve error: un generador caído no impide publicar el mercado.
func ComposeDraft(ctx context.Context, gen ports.QuestionGenerator, narration, category string) domain.MarketDraft {
	if gen == nil {
		return domain.FallbackDraft(narration, category)
	}
	d, err := gen.Generate(ctx, narration)
	if err != nil {
		slog.Warn("question generator failed, using fallback draft", "err", err)
		return domain.FallbackDraft(narration, category)
	}
	// La categoría elegida por el usuario manda sobre la inferida.
	if category != "" {
		d.Category = domain.NormalizeCategory(category, d.Category)
	}
	return d.Complete(narration, category)
}
