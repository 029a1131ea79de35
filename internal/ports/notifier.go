package ports

import (
	"context"

	"github.com/alejandrodnm/castlot/internal/domain"
)

// Notifier presenta el leaderboard al usuario.
type Notifier interface {
	// Notify muestra los registros ya ordenados.
	Notify(ctx context.Context, leaderboard []domain.CalibrationRecord) error
}
