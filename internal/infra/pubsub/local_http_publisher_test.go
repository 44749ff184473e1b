package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passport/internal/domain/service"
)

func TestLocalHTTPPublisher_PublishAccountEvent(t *testing.T) {
	var received PubSubPushMessage
	var requestIDHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		requestIDHeader = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, slog.Default())

	accountID := uuid.New()
	event := &service.AccountEvent{
		RequestID:    "req-123",
		Type:         service.AccountEventRegistered,
		AccountID:    accountID,
		Email:        "user@example.com",
		ReferralCode: "A1B2C3D4",
		OccurredAt:   time.Now(),
	}

	require.NoError(t, publisher.PublishAccountEvent(context.Background(), event))

	assert.Equal(t, "req-123", requestIDHeader)
	assert.Equal(t, service.AccountEventRegistered, received.Message.Attributes["event_type"])
	assert.Equal(t, accountID.String(), received.Message.Attributes["account_id"])

	decoded, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)

	var got service.AccountEvent
	require.NoError(t, json.Unmarshal(decoded, &got))
	assert.Equal(t, event.Email, got.Email)
	assert.Equal(t, event.ReferralCode, got.ReferralCode)
}

func TestLocalHTTPPublisher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, slog.Default())

	event := &service.AccountEvent{
		Type:      service.AccountEventPasswordChanged,
		AccountID: uuid.New(),
	}

	err := publisher.PublishAccountEvent(context.Background(), event)
	assert.Error(t, err)
}
