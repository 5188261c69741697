package service

import (
	gumerrors "github.com/mbocharov/gumhook/internal/errors"
	"github.com/mbocharov/gumhook/internal/store"
)

// Action is what an interpreted webhook event does to a subscriber set.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// UnknownProduct is the sentinel product key for payloads that carry no
// product permalink and no configured default.
const UnknownProduct = "unknown"

// Event is the normalized, typed view of an inbound Gumroad webhook payload.
// It is constructed per request and never persisted.
type Event struct {
	Product  string
	Email    string
	Action   Action
	SellerID string
}

// Interpreter maps an untyped webhook field map to an Event.
// It is the only component that understands Gumroad's payload conventions.
type Interpreter struct {
	expectedSeller string
	defaultProduct string
}

// NewInterpreter creates an Interpreter. expectedSeller is the best-effort
// sender check (empty disables it); defaultProduct is the fixed product key
// for single-product deployments (empty falls back to UnknownProduct).
func NewInterpreter(expectedSeller, defaultProduct string) *Interpreter {
	return &Interpreter{
		expectedSeller: expectedSeller,
		defaultProduct: defaultProduct,
	}
}

// Interpret decides the target product and action for a webhook payload.
//
// A payload without an email fails with ErrMissingEmail. When an expected
// seller id is configured and the payload carries a different one, the event
// fails with ErrUntrustedSender; a payload without a seller id passes, since
// this is a best-effort check, not signature verification. Any termination
// signal (refunded flag, cancellation or end timestamp) means REMOVE and
// takes precedence over ADD regardless of other fields.
func (i *Interpreter) Interpret(fields map[string]string) (*Event, error) {
	email := store.NormalizeEmail(fields["email"])
	if email == "" {
		return nil, gumerrors.ErrMissingEmail
	}

	sellerID := fields["seller_id"]
	if i.expectedSeller != "" && sellerID != "" && sellerID != i.expectedSeller {
		return nil, gumerrors.ErrUntrustedSender
	}

	product := fields["product_permalink"]
	if product == "" {
		product = i.defaultProduct
	}
	if product == "" {
		product = UnknownProduct
	}

	action := ActionAdd
	if fields["refunded"] == "true" ||
		fields["subscription_cancelled_at"] != "" ||
		fields["subscription_ended_at"] != "" {
		action = ActionRemove
	}

	return &Event{
		Product:  product,
		Email:    email,
		Action:   action,
		SellerID: sellerID,
	}, nil
}
