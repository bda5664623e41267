package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and transports return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrDuplicateRetirementNumber: members.retirement_number constraint hit
// - ErrDuplicateCardNumber: members.card_number constraint hit
// - ErrTransient: transport fault worth retrying
// - ErrSessionClosed: transport session is gone and must be rebuilt
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound                  = errors.New("not found")
	ErrDuplicateRetirementNumber = errors.New("duplicate retirement number")
	ErrDuplicateCardNumber       = errors.New("duplicate card number")
	ErrTransient                 = errors.New("transient fault")
	ErrSessionClosed             = errors.New("session closed")
)
