package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/alejandrodnm/castlot/internal/ports"
	"github.com/olekukonko/tablewriter"
)

var _ ports.Notifier = (*Console)(nil)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// Notify imprime el leaderboard (ya ordenado) en el modo configurado.
func (c *Console) Notify(_ context.Context, leaderboard []domain.CalibrationRecord) error {
	if len(leaderboard) == 0 {
		fmt.Fprintf(c.out, "[%s] no forecasters yet\n", c.now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printLeaderboard(leaderboard)
	} else {
		c.printCompact(leaderboard)
	}
	return nil
}

// printCompact imprime el top en una línea.
func (c *Console) printCompact(records []domain.CalibrationRecord) {
	oracle, expert, analyst, novice := countByTier(records)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d users → O:%d E:%d A:%d N:%d",
		c.now().Format("15:04:05"), len(records), oracle, expert, analyst, novice)

	for i, r := range records {
		if i >= 5 || !r.HasScore {
			break
		}
		fmt.Fprintf(&sb, " | #%d %s %s %s", i+1, compactName(r.UserID, 16), r.DisplayScore(), r.Tier)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printLeaderboard imprime la tabla completa.
func (c *Console) printLeaderboard(records []domain.CalibrationRecord) {
	fmt.Fprintf(c.out, "\n[%s] Calibration leaderboard — %d forecasters\n",
		c.now().Format("15:04:05"), len(records))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "User", "Brier", "Tier", "Resolved", "Pending")
	for i, r := range records {
		table.Append(
			fmt.Sprintf("%d", i+1),
			compactName(r.UserID, 24),
			r.DisplayScore(),
			string(r.Tier),
			fmt.Sprintf("%d", r.Resolved),
			fmt.Sprintf("%d", r.Pending),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Brier = mean((p - outcome)²), menor es mejor")
	fmt.Fprintln(c.out, "  Tier: Oracle < 0.10 < Expert < 0.15 < Analyst < 0.20 < Novice")
}

func countByTier(records []domain.CalibrationRecord) (oracle, expert, analyst, novice int) {
	for _, r := range records {
		switch r.Tier {
		case domain.TierOracle:
			oracle++
		case domain.TierExpert:
			expert++
		case domain.TierAnalyst:
			analyst++
		case domain.TierNovice:
			novice++
		}
	}
	return
}

func compactName(s string, maxLen int) string {
	return domain.TruncateQuestion(s, "?", maxLen)
}

// Writer devuelve el destino del output.
func (c *Console) Writer() io.Writer {
	return c.out
}
