package member

import "context"

// Store persists member rows. The relational uniqueness constraints on
// retirement_number and card_number are the authoritative serialization point
// for enrollment races; implementations surface violations as
// sentinel.ErrDuplicateRetirementNumber / sentinel.ErrDuplicateCardNumber and
// missing rows as sentinel.ErrNotFound.
type Store interface {
	Insert(ctx context.Context, m *Member) error
	Update(ctx context.Context, m *Member) error
	FindByRetirementNumber(ctx context.Context, retirementNumber string) (*Member, error)

	// MaxCardSequence returns the highest existing sequence within the
	// branch's numbering namespace, 0 when the branch has no members yet.
	MaxCardSequence(ctx context.Context, branchCode string) (int, error)
	CardNumberExists(ctx context.Context, cardNumber string) (bool, error)
}
