// Package services defines the business logic for balances, the media
// catalog, viewed-sets, the dispenser, referrals, and broadcasts. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These are expected, user-facing result variants rather than faults: each
// one maps to exactly one message at the bot layer, and none of them is ever
// fatal to the process.
package services

import "errors"

var (
	// ErrBanned is returned when a banned user requests media or invokes
	// a gated command.
	ErrBanned = errors.New("user is banned")

	// ErrInsufficientBalance is returned when a non-privileged user has
	// too few coins to cover the request.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrExhausted is returned when no unseen media remains for the user.
	// It is a normal terminal state, not a failure.
	ErrExhausted = errors.New("no unseen media available")

	// ErrDeliveryFailed is returned when the relay rejected a delivery for
	// a transient or permission reason. Items delivered earlier in the
	// same request stay committed.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrAlreadyExists is returned when an upload carries a content
	// fingerprint that is already cataloged.
	ErrAlreadyExists = errors.New("media already exists in the vault")
)
