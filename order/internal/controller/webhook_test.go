package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/order/internal/service"
	"github.com/Alturino/storefront/payment"
)

type fakeVerifier struct {
	signature string
	event     payment.Event
}

func (f fakeVerifier) VerifyAndParseEvent(c context.Context, payload []byte, signature string) (payment.Event, error) {
	if signature != f.signature {
		return payment.Event{}, payment.ErrSignatureVerification
	}
	return f.event, nil
}

type fakeReconciler struct {
	events  []payment.Event
	outcome service.ReconcileOutcome
}

func (f *fakeReconciler) ReconcilePayment(c context.Context, e payment.Event) service.ReconcileOutcome {
	f.events = append(f.events, e)
	return f.outcome
}

func TestWebhookStripe(t *testing.T) {
	verified := payment.Event{ID: "evt_1", Type: payment.EventCheckoutSessionCompleted, OrderReference: "1"}

	tests := []struct {
		name               string
		signature          string
		outcome            service.ReconcileOutcome
		expectedStatusCode int
		expectedReconciled int
	}{
		{
			name:               "given invalid signature should return bad request",
			signature:          "t=1,v1=bad",
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "given applied event should acknowledge",
			signature:          "valid",
			outcome:            service.OutcomeApplied,
			expectedStatusCode: http.StatusOK,
			expectedReconciled: 1,
		},
		{
			name:               "given failed reconciliation should still acknowledge",
			signature:          "valid",
			outcome:            service.OutcomeFailed,
			expectedStatusCode: http.StatusOK,
			expectedReconciled: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconciler := &fakeReconciler{outcome: tt.outcome}
			router := mux.NewRouter()
			AttachWebhookController(router, fakeVerifier{signature: "valid", event: verified}, reconciler)

			req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
			req.Header.Set(inHttp.KeyHeaderStripeSignature, tt.signature)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatusCode, rec.Code)
			assert.Len(t, reconciler.events, tt.expectedReconciled)

			body := map[string]interface{}{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			if tt.expectedStatusCode == http.StatusOK {
				assert.Equal(t, true, body["received"])
				assert.Equal(t, string(tt.outcome), body["message"])
			}
		})
	}
}

func TestWebhookStripeBodyTooLarge(t *testing.T) {
	reconciler := &fakeReconciler{outcome: service.OutcomeApplied}
	router := mux.NewRouter()
	AttachWebhookController(router, fakeVerifier{signature: "valid"}, reconciler)

	req := httptest.NewRequest(
		http.MethodPost,
		"/webhooks/stripe",
		bytes.NewReader(bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)),
	)
	req.Header.Set(inHttp.KeyHeaderStripeSignature, "valid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, reconciler.events)
}
