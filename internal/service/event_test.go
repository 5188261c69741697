package service

import (
	"testing"

	gumerrors "github.com/mbocharov/gumhook/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Interpreter_Interpret(t *testing.T) {
	testCases := []struct {
		name           string
		expectedSeller string
		defaultProduct string
		fields         map[string]string
		expected       *Event
		expectError    error
	}{
		{
			name: "Purchase becomes add",
			fields: map[string]string{
				"email":             "a@b.com",
				"product_permalink": "cemyz",
			},
			expected: &Event{Product: "cemyz", Email: "a@b.com", Action: ActionAdd},
		},
		{
			name: "Email is normalized",
			fields: map[string]string{
				"email":             "  Foo@Bar.COM ",
				"product_permalink": "cemyz",
			},
			expected: &Event{Product: "cemyz", Email: "foo@bar.com", Action: ActionAdd},
		},
		{
			name:        "Missing email is rejected",
			fields:      map[string]string{"product_permalink": "cemyz"},
			expectError: gumerrors.ErrMissingEmail,
		},
		{
			name:        "Blank email is rejected",
			fields:      map[string]string{"email": "   "},
			expectError: gumerrors.ErrMissingEmail,
		},
		{
			name:           "Seller mismatch is rejected",
			expectedSeller: "seller-123",
			fields: map[string]string{
				"email":     "a@b.com",
				"seller_id": "someone-else",
			},
			expectError: gumerrors.ErrUntrustedSender,
		},
		{
			name:           "Matching seller passes",
			expectedSeller: "seller-123",
			fields: map[string]string{
				"email":             "a@b.com",
				"seller_id":         "seller-123",
				"product_permalink": "cemyz",
			},
			expected: &Event{Product: "cemyz", Email: "a@b.com", Action: ActionAdd, SellerID: "seller-123"},
		},
		{
			name:           "Absent seller passes the best-effort check",
			expectedSeller: "seller-123",
			fields: map[string]string{
				"email":             "a@b.com",
				"product_permalink": "cemyz",
			},
			expected: &Event{Product: "cemyz", Email: "a@b.com", Action: ActionAdd},
		},
		{
			name: "Refund becomes remove without any timestamps",
			fields: map[string]string{
				"email":             "a@b.com",
				"product_permalink": "cemyz",
				"refunded":          "true",
			},
			expected: &Event{Product: "cemyz", Email: "a@b.com", Action: ActionRemove},
		},
		{
			name: "Refunded false stays add",
			fields: map[string]string{
				"email":             "a@b.com",
				"product_permalink": "cemyz",
				"refunded":          "false",
			},
			expected: &Event{Product: "cemyz", Email: "a@b.com", Action: ActionAdd},
		},
		{
			name: "Cancellation timestamp becomes remove",
			fields: map[string]string{
				"email":                     "a@b.com",
				"product_permalink":         "cemyz",
				"subscription_cancelled_at": "2024-01-01T00:00:00Z",
			},
			expected: &Event{Product: "cemyz", Email: "a@b.com", Action: ActionRemove},
		},
		{
			name: "Subscription end becomes remove",
			fields: map[string]string{
				"email":                 "a@b.com",
				"product_permalink":     "cemyz",
				"subscription_ended_at": "2024-01-01",
			},
			expected: &Event{Product: "cemyz", Email: "a@b.com", Action: ActionRemove},
		},
		{
			name:     "Missing permalink falls back to the unknown sentinel",
			fields:   map[string]string{"email": "a@b.com"},
			expected: &Event{Product: UnknownProduct, Email: "a@b.com", Action: ActionAdd},
		},
		{
			name:           "Missing permalink uses the configured default product",
			defaultProduct: "cemyz",
			fields:         map[string]string{"email": "a@b.com"},
			expected:       &Event{Product: "cemyz", Email: "a@b.com", Action: ActionAdd},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			interpreter := NewInterpreter(tc.expectedSeller, tc.defaultProduct)
			// when
			event, err := interpreter.Interpret(tc.fields)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, event)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, event)
		})
	}
}
