package notify_test

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/castlot/internal/adapters/notify"
	"github.com/alejandrodnm/castlot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(userID string, resolved []domain.Forecast, pending int) domain.CalibrationRecord {
	return domain.NewCalibrationRecord(userID, resolved, pending)
}

func sampleBoard() []domain.CalibrationRecord {
	board := []domain.CalibrationRecord{
		makeRecord("maya", []domain.Forecast{{Probability: 0.9, Hit: true}}, 0),
		makeRecord("leo", []domain.Forecast{{Probability: 0.7, Hit: true}, {Probability: 0.6, Hit: false}}, 1),
		makeRecord("newbie", nil, 2),
	}
	domain.RankCalibrations(board)
	return board
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	err := n.Notify(context.Background(), sampleBoard())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "maya")
	assert.Contains(t, out, "0.010")
	assert.Contains(t, out, "Oracle")
	assert.Contains(t, out, "leo")
	assert.Contains(t, out, "Novice")
	assert.Contains(t, out, "No data")
	assert.Contains(t, out, "—")
	assert.Less(t, strings.Index(out, "maya"), strings.Index(out, "newbie"))
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.Notify(context.Background(), sampleBoard())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "3 users")
	assert.Contains(t, out, "O:1")
	assert.Contains(t, out, "#1 maya 0.010 Oracle")
	assert.NotContains(t, out, "newbie")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestConsole_Notify_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	err := n.Notify(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no forecasters yet")
}

func TestConsole_PrintMarkets(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	markets := []domain.Market{{
		ID:                 "1",
		Question:           "Will I get a return offer from Goldman Sachs after my summer internship?",
		Category:           domain.CategoryCareer,
		QYes:               120,
		QNo:                60,
		Status:             domain.StatusOpen,
		ParticipantCount:   47,
		CommentCount:       13,
		ResolutionDeadline: time.Now().Add(48 * time.Hour),
	}}
	n.PrintMarkets(markets, domain.NewLMSR(80))

	out := buf.String()
	assert.Contains(t, out, "68%")
	assert.Contains(t, out, "47")
	assert.Contains(t, out, "13")
	assert.Contains(t, strings.ToUpper(out), "COMMENTS")
	assert.Contains(t, out, "career")
	assert.Contains(t, out, "...")
}

func TestConsole_PrintComments(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	m := domain.Market{ID: "1", Question: "Will I finish the marathon?"}
	n.PrintComments(m, []domain.Comment{
		{UserID: "maya", Text: "you trained all spring", Score: 12, CreatedAt: time.Now()},
		{UserID: "leo", Text: "knee still hurts?", CreatedAt: time.Now()},
	})

	out := buf.String()
	assert.Contains(t, out, "(2 comments)")
	assert.Contains(t, out, "+12")
	assert.Less(t, strings.Index(out, "maya"), strings.Index(out, "leo"))
}

func TestNewConsole_Stdout(t *testing.T) {
	n := notify.NewConsole(false)
	require.NotNil(t, n)
	assert.Equal(t, os.Stdout, n.Writer())
}

func TestConsole_PrintPosition(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	m := domain.Market{ID: "1", Question: "Will I finish the marathon?"}
	n.PrintPosition(m, domain.Position{
		UserID: "maya", Side: domain.SideYes, ProbabilityAtEntry: 0.679, Stake: 50, CreatedAt: time.Now(),
	})

	out := buf.String()
	assert.Contains(t, out, "maya")
	assert.Contains(t, out, "67.9%")
	assert.Contains(t, out, "stake 50 FP")
}
