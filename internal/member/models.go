package member

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Member is a pension-association member holding an issued identity card.
type Member struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	RetirementNumber string    `json:"retirement_number"`
	CardNumber       string    `json:"card_number"`
	PhoneNumber      string    `json:"phone_number"`
	BirthDate        string    `json:"birth_date"`
	Address          string    `json:"address"`
	City             string    `json:"city"`
	BranchID         int64     `json:"branch_id"`
	CardImagePath    *string   `json:"card_image_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EnrollmentRequest is the payload of POST /api/kirim-member.
type EnrollmentRequest struct {
	Name             string `json:"name"`
	RetirementNumber string `json:"retirement_number"`
	PhoneNumber      string `json:"phone_number"`
	BirthDate        string `json:"birth_date"`
	Address          string `json:"address"`
	City             string `json:"city"`
	BranchID         int64  `json:"branch_id"`
}

// UpdateRequest is the payload of PUT /api/update-member. The record being
// updated is keyed by OldRetirementNumber.
type UpdateRequest struct {
	EnrollmentRequest
	OldRetirementNumber string `json:"old_retirement_number"`
}

// Status is the terminal outcome of one enrollment request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
)

// Result is what the orchestrator hands back to the handler: the persisted
// member, the stored image reference, and whether delivery made it out.
type Result struct {
	Status  Status
	Member  *Member
	Message string
}

// cardNumberPrefix precedes every card number; the branch code and a 5-digit
// sequence follow.
const cardNumberPrefix = "NA. "

// cardSequenceWidth is the zero-padded width of the per-branch sequence.
const cardSequenceWidth = 5

var cardSequenceRe = regexp.MustCompile(`(\d{5})$`)

// FormatCardNumber renders "NA. <branchCode>.<5-digit sequence>". Branch codes
// are used verbatim as the numbering namespace.
func FormatCardNumber(branchCode string, sequence int) string {
	return fmt.Sprintf("%s%s.%0*d", cardNumberPrefix, branchCode, cardSequenceWidth, sequence)
}

// CardNumberPrefix returns the prefix shared by every card number in a branch,
// e.g. "NA. 252." — stores match on it when computing the next sequence.
func CardNumberPrefix(branchCode string) string {
	return cardNumberPrefix + branchCode + "."
}

// ParseCardSequence extracts the numeric sequence from a card number. Returns
// false when the value does not end in a 5-digit sequence.
func ParseCardSequence(cardNumber string) (int, bool) {
	m := cardSequenceRe.FindStringSubmatch(cardNumber)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// InBranch reports whether cardNumber belongs to the branch's numbering
// namespace.
func InBranch(cardNumber, branchCode string) bool {
	return strings.HasPrefix(cardNumber, CardNumberPrefix(branchCode))
}
