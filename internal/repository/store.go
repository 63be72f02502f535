package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the relational repositories and runs them in transactions.
type Store interface {
	Users() UserRepository
	Tickets() TicketRepository
	References() ReferenceRepository
	Comments() CommentRepository
	Attachments() AttachmentRepository
	Escalations() EscalationRepository
	// InTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgresStore returns a Store backed by the pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Users() UserRepository { return &userRepository{db: s.db} }
func (s *pgStore) Tickets() TicketRepository { return &ticketRepository{db: s.db} }
func (s *pgStore) References() ReferenceRepository { return &referenceRepository{db: s.db} }
func (s *pgStore) Comments() CommentRepository { return &commentRepository{db: s.db} }
func (s *pgStore) Attachments() AttachmentRepository { return &attachmentRepository{db: s.db} }
func (s *pgStore) Escalations() EscalationRepository { return &escalationRepository{db: s.db} }

func (s *pgStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// already inside a transaction
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// uniqueViolation returns the violated constraint name for unique errors.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
