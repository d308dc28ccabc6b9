// Package domain holds shared value types for the approval engine: typed
// identifiers and the currency code.
//
// IDs are distinct uuid-backed types so an organization ID can never be passed
// where a principal ID is expected; the compiler enforces it. Construct them
// via the Parse helpers at trust boundaries — direct casting bypasses
// validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "payguard/pkg/domain-errors"
)

// EntityID identifies an approvable entity (expense or payout).
type EntityID uuid.UUID

// OrgID identifies the organization whose thresholds apply.
type OrgID uuid.UUID

// PrincipalID identifies an acting principal supplied by the identity layer.
type PrincipalID uuid.UUID

func (id EntityID) String() string    { return uuid.UUID(id).String() }
func (id OrgID) String() string       { return uuid.UUID(id).String() }
func (id PrincipalID) String() string { return uuid.UUID(id).String() }

func (id EntityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PrincipalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// The UUID backing array does not carry method sets across named types, so
// each ID implements encoding.TextMarshaler explicitly to serialize as the
// canonical string form.

func (id EntityID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id OrgID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id PrincipalID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EntityID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *OrgID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrgID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PrincipalID) UnmarshalText(b []byte) error {
	parsed, err := ParsePrincipalID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewEntityID mints a random entity identifier.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

// ParseEntityID constructs an EntityID from external input.
func ParseEntityID(s string) (EntityID, error) {
	u, err := parseUUID(s, "entity id")
	return EntityID(u), err
}

// ParseOrgID constructs an OrgID from external input.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s, "organization id")
	return OrgID(u), err
}

// ParsePrincipalID constructs a PrincipalID from external input.
func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := parseUUID(s, "principal id")
	return PrincipalID(u), err
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}
