package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"himpana/internal/branch"
	"himpana/pkg/sentinel"
)

// PostgresStore reads branch reference data from the relational store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, id int64) (*branch.Branch, error) {
	query := `
		SELECT id, code, name, province_id
		FROM branches
		WHERE id = $1
	`
	b := &branch.Branch{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Code, &b.Name, &b.ProvinceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query branch: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListProvinces(ctx context.Context) ([]branch.Province, error) {
	query := `
		SELECT id, name
		FROM provinces
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query provinces: %w", err)
	}
	defer rows.Close()

	var provinces []branch.Province
	for rows.Next() {
		var p branch.Province
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan province: %w", err)
		}
		provinces = append(provinces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provinces: %w", err)
	}
	return provinces, nil
}

func (s *PostgresStore) ListByProvince(ctx context.Context, provinceID int64) ([]branch.Branch, error) {
	query := `
		SELECT id, code, name, province_id
		FROM branches
		WHERE province_id = $1
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, provinceID)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	var branches []branch.Branch
	for rows.Next() {
		var b branch.Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.ProvinceID); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}
	return branches, nil
}
