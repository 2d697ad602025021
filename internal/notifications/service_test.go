package notifications

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mrcasterbaldman/caster-bot/internal/config"
	"github.com/mrcasterbaldman/caster-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func sampleReport() *models.Report {
	return &models.Report{
		GeneratedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Period:      "daily",
		TotalUsers:  2,
		Leaders: []models.RankingEntry{
			{FID: "1", Username: "alice", Balance: 300},
			{FID: "2", Username: "bob", Balance: 100},
		},
		Summary: map[string]any{"total_distributed": int64(400)},
	}
}

func TestService_SendReportToTeams(t *testing.T) {
	var got TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	require.NoError(t, service.SendReport(sampleReport()))

	assert.Equal(t, "MessageCard", got.Type)
	require.Len(t, got.Sections, 2)
	assert.Contains(t, got.Sections[1].ActivityText, "**@alice** - 300")
}

func TestService_TeamsErrorIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	err := service.SendAlert(&models.Alert{Type: "critical", Title: "t", Message: "m"})
	assert.ErrorContains(t, err, "Teams")
}

func TestService_SendAlertByEmail(t *testing.T) {
	service := NewService(&config.Config{
		NotificationEmail: "ops@example.com",
		SMTPUsername:      "bot@example.com",
	})

	var sent []*gomail.Message
	service.send = func(m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	}

	require.NoError(t, service.SendAlert(&models.Alert{Type: "critical", Title: "Reward wallet underfunded", Message: "top up"}))
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"[CRITICAL] Reward wallet underfunded"}, sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"ops@example.com"}, sent[0].GetHeader("To"))

	service.send = func(*gomail.Message) error { return errors.New("smtp down") }
	assert.ErrorContains(t, service.SendReport(sampleReport()), "Email")
}

func TestService_NoChannels(t *testing.T) {
	service := NewService(&config.Config{})
	assert.False(t, service.Enabled())
	assert.NoError(t, service.SendAlert(&models.Alert{Title: "x"}))
}

func TestBuildReportBodies(t *testing.T) {
	report := sampleReport()

	text := buildReportText(report)
	assert.True(t, strings.Contains(text, "1. @alice (1) - 300"))

	html, err := buildReportHTML(report)
	require.NoError(t, err)
	assert.Contains(t, html, "<li>@bob (2) - 100</li>")
}
