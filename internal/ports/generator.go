package ports

import (
	"context"

	"github.com/alejandrodnm/castlot/internal/domain"
)

// QuestionGenerator turns free-form narration into a market draft. It is an
// external collaborator and may fail; callers fall back to domain.FallbackDraft.
type QuestionGenerator interface {
	Generate(ctx context.Context, narration string) (domain.MarketDraft, error)
}
