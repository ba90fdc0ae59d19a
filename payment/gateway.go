// Package payment hosts the hosted-checkout collaborator used by order assembly and the webhook
// endpoint.
package payment

import (
	"context"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	MetadataOrderID               = "orderId"
)

var ErrSignatureVerification = &inErrors.Error{
	Kind:    inErrors.KindValidation,
	Message: "webhook signature verification failed",
}

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int32
}

type CheckoutRequest struct {
	OrderID       int64
	CustomerEmail string
	Items         []LineItem
}

type Session struct {
	ID string
	// URL is where the customer is redirected to pay.
	URL string
	// OrderReference is the orderId metadata attached when the session was created.
	OrderReference   string
	PaymentReference string
	Paid             bool
}

// Event is the part of a verified provider notification that reconciliation needs.
type Event struct {
	ID               string
	Type             string
	OrderReference   string
	PaymentReference string
}

type Gateway interface {
	CreateCheckoutSession(c context.Context, req CheckoutRequest) (Session, error)
	RetrieveCheckoutSession(c context.Context, sessionID string) (Session, error)
	// VerifyAndParseEvent fails with ErrSignatureVerification when the payload was not signed
	// with the webhook secret.
	VerifyAndParseEvent(c context.Context, payload []byte, signature string) (Event, error)
}
