package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/config"
)

func TestResendMailerSend(t *testing.T) {
	var (
		body   map[string]any
		header http.Header
		path   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		header = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer server.Close()

	mailer, err := NewResendMailer(config.Mail{APIKey: "re_test", From: "Shop <shop@example.com>", APIURL: server.URL + "/"})
	require.NoError(t, err)

	id, err := mailer.Send(context.Background(), Email{
		To:             "ana@example.com",
		Subject:        "Order Confirmation #1",
		Html:           "<p>hi</p>",
		Topic:          "order.created",
		IdempotencyKey: "evt-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "email_123", id)
	assert.Equal(t, "/emails", path)
	assert.Equal(t, "Bearer re_test", header.Get("Authorization"))
	assert.Equal(t, "evt-1", header.Get("Idempotency-Key"))
	assert.Equal(t, "Shop <shop@example.com>", body["from"])
	assert.Equal(t, []any{"ana@example.com"}, body["to"])
	assert.Equal(t, "Order Confirmation #1", body["subject"])
	assert.Equal(t, []any{map[string]any{"name": "topic", "value": "order_created"}}, body["tags"])
}

func TestResendMailerSendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid to"}`))
	}))
	defer server.Close()

	mailer, err := NewResendMailer(config.Mail{APIKey: "re_test", From: "shop@example.com", APIURL: server.URL + "/"})
	require.NoError(t, err)

	_, err = mailer.Send(context.Background(), Email{To: "nobody", Subject: "x", Html: "x"})
	require.Error(t, err)
}
