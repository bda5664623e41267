package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"himpana/internal/member"
	"himpana/pkg/sentinel"
)

// PostgresStore persists members. Constraint violations are translated into
// sentinel errors by constraint name so the orchestrator can distinguish a
// lost card-number race (retryable) from a duplicate retirement number
// (terminal).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, m *member.Member) error {
	query := `
		INSERT INTO members (
			id, name, retirement_number, card_number, phone_number,
			birth_date, address, city, branch_id, card_image_path,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.Name,
		m.RetirementNumber,
		m.CardNumber,
		m.PhoneNumber,
		m.BirthDate,
		m.Address,
		m.City,
		m.BranchID,
		m.CardImagePath,
	)
	if err != nil {
		return translateConstraint(err, "insert member")
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, m *member.Member) error {
	query := `
		UPDATE members
		SET name = $2, retirement_number = $3, card_number = $4,
			phone_number = $5, birth_date = $6, address = $7, city = $8,
			branch_id = $9, card_image_path = $10, updated_at = NOW()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.Name,
		m.RetirementNumber,
		m.CardNumber,
		m.PhoneNumber,
		m.BirthDate,
		m.Address,
		m.City,
		m.BranchID,
		m.CardImagePath,
	)
	if err != nil {
		return translateConstraint(err, "update member")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByRetirementNumber(ctx context.Context, retirementNumber string) (*member.Member, error) {
	query := `
		SELECT id, name, retirement_number, card_number, phone_number,
			   birth_date, address, city, branch_id, card_image_path,
			   created_at, updated_at
		FROM members
		WHERE retirement_number = $1
	`
	m := &member.Member{}
	err := s.db.QueryRowContext(ctx, query, retirementNumber).Scan(
		&m.ID,
		&m.Name,
		&m.RetirementNumber,
		&m.CardNumber,
		&m.PhoneNumber,
		&m.BirthDate,
		&m.Address,
		&m.City,
		&m.BranchID,
		&m.CardImagePath,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// MaxCardSequence reads the highest 5-digit sequence among card numbers in the
// branch's namespace. No rows means sequence 0.
func (s *PostgresStore) MaxCardSequence(ctx context.Context, branchCode string) (int, error) {
	query := `
		SELECT COALESCE(MAX(substring(card_number from '\d{5}$')::int), 0)
		FROM members
		WHERE card_number LIKE $1
	`
	pattern := likeEscape(member.CardNumberPrefix(branchCode)) + "%"

	var max int
	if err := s.db.QueryRowContext(ctx, query, pattern).Scan(&max); err != nil {
		return 0, fmt.Errorf("query max card sequence: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) CardNumberExists(ctx context.Context, cardNumber string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM members WHERE card_number = $1)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, cardNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("query card number: %w", err)
	}
	return exists, nil
}

// translateConstraint maps pq unique violations (23505) to sentinel errors by
// constraint name.
func translateConstraint(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "retirement_number"):
			return sentinel.ErrDuplicateRetirementNumber
		case strings.Contains(pqErr.Constraint, "card_number"):
			return sentinel.ErrDuplicateCardNumber
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// likeEscape neutralizes LIKE metacharacters in a literal prefix.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
