// Package allocator assigns per-branch card numbers. Allocation is
// optimistic: read the branch's current maximum sequence, propose max+1, and
// probe for collisions. The members.card_number uniqueness constraint remains
// the authoritative serialization point; a lost race surfaces on INSERT as
// sentinel.ErrDuplicateCardNumber and the orchestrator re-allocates.
package allocator

import (
	"context"
	"errors"
	"log/slog"

	"himpana/internal/branch"
	"himpana/internal/member"
	derrors "himpana/pkg/domain-errors"
	"himpana/pkg/sentinel"
)

// maxProbes bounds the duplicate re-check loop; beyond this the branch is
// being hammered concurrently and the caller should fail rather than spin.
const maxProbes = 10

type Allocator struct {
	branches branch.Store
	members  member.Store
	logger   *slog.Logger
}

func New(branches branch.Store, members member.Store, logger *slog.Logger) *Allocator {
	return &Allocator{branches: branches, members: members, logger: logger}
}

// Allocate returns the next unused card number for the branch. The candidate
// is max+1 over existing members in the branch's namespace, then probed
// against the store so that an allocation committed between the read and the
// probe bumps the candidate instead of colliding on INSERT.
func (a *Allocator) Allocate(ctx context.Context, branchID int64) (string, error) {
	b, err := a.branches.Find(ctx, branchID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", derrors.Newf(derrors.CodeAllocation, "branch %d does not exist", branchID)
	}
	if err != nil {
		return "", derrors.Wrap(derrors.CodePersistence, "failed to resolve branch", err)
	}

	max, err := a.members.MaxCardSequence(ctx, b.Code)
	if err != nil {
		return "", derrors.Wrap(derrors.CodePersistence, "failed to read card sequence", err)
	}

	for candidate := max + 1; candidate <= max+maxProbes; candidate++ {
		cardNumber := member.FormatCardNumber(b.Code, candidate)

		exists, err := a.members.CardNumberExists(ctx, cardNumber)
		if err != nil {
			return "", derrors.Wrap(derrors.CodePersistence, "failed to probe card number", err)
		}
		if !exists {
			return cardNumber, nil
		}

		a.logger.DebugContext(ctx, "card number taken, probing next",
			"branch_code", b.Code,
			"candidate", cardNumber,
		)
	}

	return "", derrors.Newf(derrors.CodeAllocation, "no free card number after %d probes in branch %s", maxProbes, b.Code)
}
