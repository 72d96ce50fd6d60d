package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
)

func TestNewMailer_LogOnlyWithoutURL(t *testing.T) {
	m, err := NewMailer(config.BrokerConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, m.Send(context.Background(), Email{To: "a@b.c", Subject: "hi"}))
	assert.NoError(t, m.Close())
}

func TestEnvelopeJSON(t *testing.T) {
	producer := "triage-service"
	env := Envelope{
		Meta: Meta{ID: "1", Producer: &producer, Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Type: "notifications.email.v1"},
		Data: Email{To: "a@b.c", Kind: "reminder"},
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"meta": {"id":"1","producer":"triage-service","time":"2026-01-02T03:04:05Z","type":"notifications.email.v1"},
		"data": {"from":"","to":"a@b.c","subject":"","body":"","kind":"reminder"}
	}`, string(raw))
}
