package notify

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// PrintMarkets imprime el feed de mercados con la probabilidad YES actual.
func (c *Console) PrintMarkets(markets []domain.Market, amm domain.LMSR) {
	if len(markets) == 0 {
		fmt.Fprintln(c.out, "  (no markets)")
		return
	}
	now := c.now()

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Category", "Question", "YES", "Traders", "Comments", "Status", "Resolves")
	for _, m := range markets {
		resolves := m.ResolutionDeadline.Format("2006-01-02")
		if m.IsOpen() {
			resolves = fmt.Sprintf("%s (%.0fh)", resolves, m.HoursToResolution(now))
		}
		table.Append(
			compactName(m.ID, 10),
			m.Category,
			domain.TruncateQuestion(m.Question, m.ID, 40),
			fmt.Sprintf("%.0f%%", amm.Price(m.QYes, m.QNo, domain.SideYes)*100),
			fmt.Sprintf("%d", m.ParticipantCount),
			fmt.Sprintf("%d", m.CommentCount),
			string(m.Status),
			resolves,
		)
	}
	table.Render()
}

// PrintComments imprime el hilo de un mercado, más antiguo primero.
func (c *Console) PrintComments(m domain.Market, comments []domain.Comment) {
	fmt.Fprintf(c.out, "  %s (%d comments)\n", domain.TruncateQuestion(m.Question, m.ID, 60), len(comments))
	for _, cm := range comments {
		fmt.Fprintf(c.out, "  [%s] %-10s %+4d  %s\n",
			cm.CreatedAt.Local().Format("2006-01-02 15:04"),
			compactName(cm.UserID, 10),
			cm.Score,
			cm.Text,
		)
	}
}

// PrintPosition imprime una línea por trade aceptado.
func (c *Console) PrintPosition(m domain.Market, pos domain.Position) {
	fmt.Fprintf(c.out, "[%s] %-10s %-3s %-40s @ %.1f%%  stake %.0f FP\n",
		pos.CreatedAt.Local().Format("15:04:05"),
		compactName(pos.UserID, 10),
		pos.Side,
		domain.TruncateQuestion(m.Question, m.ID, 40),
		pos.ProbabilityAtEntry*100,
		pos.Stake,
	)
}

// PrintQuote imprime el impacto del próximo trade.
func (c *Console) PrintQuote(m domain.Market, q domain.Quote) {
	fmt.Fprintf(c.out, "  %s %s: %.1f%% → %.1f%% (+%.1fpp) | LMSR cost %.2f for %.0f shares (avg %.3f)\n",
		domain.TruncateQuestion(m.Question, m.ID, 40),
		strings.ToLower(string(q.Side)),
		q.PriceBefore*100, q.PriceAfter*100, q.PriceImpact()*100,
		q.Cost, q.Shares, q.AveragePrice,
	)
}
