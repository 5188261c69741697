// Package errors provides custom error types for webhook and admin operations.
package errors

import "errors"

var (
	// ErrMissingEmail indicates a webhook payload without an email field.
	ErrMissingEmail = errors.New("missing email")

	// ErrUntrustedSender indicates a payload whose seller id does not match
	// the configured one.
	ErrUntrustedSender = errors.New("untrusted sender")

	// ErrMissingParameter indicates an admin mutation without both email and product.
	ErrMissingParameter = errors.New("missing parameter")
)
