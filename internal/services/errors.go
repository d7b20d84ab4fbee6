// Package services defines the business logic for profiles, pairing, the
// daily entry journal, custom dimensions, olive branches, reminders, and
// quotes. This file centralizes service-level error values so that they can
// be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/couple-checkin/internal/domain"
)

// Validation errors. Most are raised by domain constructors and re-exported
// here so handlers only depend on this package.
var (
	ErrInvalidEmail         = domain.ErrInvalidEmail
	ErrPasswordTooShort     = domain.ErrPasswordTooShort
	ErrInvalidRole          = domain.ErrInvalidRole
	ErrInvalidDisplayName   = domain.ErrInvalidDisplayName
	ErrInvalidTimezone      = domain.ErrInvalidTimezone
	ErrInvalidSchedule      = domain.ErrInvalidSchedule
	ErrRatingOutOfRange     = domain.ErrRatingOutOfRange
	ErrInvalidDimensionName = domain.ErrInvalidDimensionName
	ErrInvalidDate          = domain.ErrInvalidDate
	ErrEmptyMessage         = domain.ErrEmptyMessage
	ErrMessageTooLong       = domain.ErrMessageTooLong

	// ErrInvalidLocale is returned for a locale the dictionary does not carry.
	ErrInvalidLocale = errors.New("unsupported locale")
)

// Account and profile errors.
var (
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProfileNotFound indicates that the profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrRoleImmutable is returned when an update tries to change the role.
	ErrRoleImmutable = errors.New("role cannot be changed")
)

// Pairing errors.
var (
	// ErrNoActiveCouple is returned when an operation needs an active couple.
	ErrNoActiveCouple = errors.New("no active couple")

	// ErrInvitationNotFound covers unknown and already redeemed tokens.
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrInvitationExpired is returned when now is past the invitation expiry.
	ErrInvitationExpired = errors.New("invitation expired")

	// ErrIncompatibleRoles is returned when both sides share a role, or when
	// a sender tries to redeem their own invitation.
	ErrIncompatibleRoles = domain.ErrIncompatibleRoles

	// ErrAlreadyPaired is returned when either side is already in an active couple.
	ErrAlreadyPaired = errors.New("already paired")
)

// Journal and messaging errors.
var (
	// ErrEntryNotFound indicates that no entry matched.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrUnknownDimension is returned for custom values whose dimension is
	// not registered to the owner's active couple.
	ErrUnknownDimension = errors.New("unknown custom dimension")

	// ErrForbidden is returned when the viewer is neither the owner nor the
	// owner's active partner.
	ErrForbidden = errors.New("forbidden")

	// ErrNotPartner is returned when an olive branch names a couple or
	// recipient other than the sender's active partner.
	ErrNotPartner = errors.New("recipient is not your partner")

	// ErrMessageNotFound indicates that no olive branch matched.
	ErrMessageNotFound = errors.New("message not found")

	// ErrQuoteNotFound is returned when there are no quotes to serve.
	ErrQuoteNotFound = errors.New("quote not found")
)
