package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Resolver maps an address to its owning user.
type Resolver interface {
	Resolve(ctx context.Context, address string) (string, error)
}

// Repository persists wallet bindings.
type Repository interface {
	Resolver
	// Bind stores b. Binding an address again to the same user returns the
	// existing binding; binding it to someone else yields ErrAlreadyBound.
	Bind(ctx context.Context, b Binding) (Binding, error)
	ListByUser(ctx context.Context, userID string) ([]Binding, error)
}

// PostgresRepository stores bindings in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Bind inserts a binding record.
func (r *PostgresRepository) Bind(ctx context.Context, b Binding) (Binding, error) {
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return Binding{}, err
	}
	tag, err := r.db.Exec(ctx, `INSERT INTO wallet_bindings (id, user_id, address, network, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT ON CONSTRAINT wallet_bindings_address_key DO NOTHING`,
		id, b.UserID, strings.ToLower(b.Address), b.Network, b.CreatedAt.UTC())
	if err != nil {
		return Binding{}, err
	}
	if tag.RowsAffected() == 1 {
		return b, nil
	}

	existing, err := r.get(ctx, b.Address)
	if err != nil {
		return Binding{}, err
	}
	if existing.UserID != b.UserID {
		return Binding{}, ErrAlreadyBound
	}
	return existing, nil
}

// Resolve returns the user bound to address.
func (r *PostgresRepository) Resolve(ctx context.Context, address string) (string, error) {
	b, err := r.get(ctx, address)
	if err != nil {
		return "", err
	}
	return b.UserID, nil
}

// ListByUser returns every binding owned by userID.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Binding, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, address, network, created_at
        FROM wallet_bindings WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) get(ctx context.Context, address string) (Binding, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, address, network, created_at
        FROM wallet_bindings WHERE address = $1`, strings.ToLower(address))
	b, err := scanBinding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Binding{}, ErrNotBound
		}
		return Binding{}, fmt.Errorf("lookup binding: %w", err)
	}
	return b, nil
}

func scanBinding(row pgx.Row) (Binding, error) {
	var b Binding
	var id uuid.UUID
	if err := row.Scan(&id, &b.UserID, &b.Address, &b.Network, &b.CreatedAt); err != nil {
		return Binding{}, err
	}
	b.ID = id.String()
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}
