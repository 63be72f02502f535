package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ReferenceRepository persists the category, priority and status vocabularies.
type ReferenceRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListPriorities(ctx context.Context) ([]domain.Priority, error)
	ListStatuses(ctx context.Context) ([]domain.Status, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	GetPriority(ctx context.Context, id int64) (*domain.Priority, error)
	GetStatus(ctx context.Context, id int64) (*domain.Status, error)
	GetPriorityByName(ctx context.Context, name string) (*domain.Priority, error)
	GetStatusByName(ctx context.Context, name string) (*domain.Status, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	CreatePriority(ctx context.Context, priority *domain.Priority) error
	CreateStatus(ctx context.Context, status *domain.Status) error
}

type referenceRepository struct {
	db DBTX
}

// NewReferenceRepository constructs repository.
func NewReferenceRepository(db DBTX) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ListPriorities returns the most urgent first.
func (r *referenceRepository) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, level, description FROM priorities ORDER BY level DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var p domain.Priority
		if err := rows.Scan(&p.ID, &p.Name, &p.Level, &p.Description); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *referenceRepository) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description FROM statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *referenceRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRow(ctx, `SELECT id, name, description FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *referenceRepository) GetPriority(ctx context.Context, id int64) (*domain.Priority, error) {
	return r.fetchPriority(ctx, `SELECT id, name, level, description FROM priorities WHERE id=$1`, id)
}

func (r *referenceRepository) GetPriorityByName(ctx context.Context, name string) (*domain.Priority, error) {
	return r.fetchPriority(ctx, `SELECT id, name, level, description FROM priorities WHERE LOWER(name)=LOWER($1)`, name)
}

func (r *referenceRepository) fetchPriority(ctx context.Context, query string, arg any) (*domain.Priority, error) {
	var p domain.Priority
	if err := r.db.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Name, &p.Level, &p.Description); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *referenceRepository) GetStatus(ctx context.Context, id int64) (*domain.Status, error) {
	return r.fetchStatus(ctx, `SELECT id, name, description FROM statuses WHERE id=$1`, id)
}

func (r *referenceRepository) GetStatusByName(ctx context.Context, name string) (*domain.Status, error) {
	return r.fetchStatus(ctx, `SELECT id, name, description FROM statuses WHERE LOWER(name)=LOWER($1)`, name)
}

func (r *referenceRepository) fetchStatus(ctx context.Context, query string, arg any) (*domain.Status, error) {
	var s domain.Status
	if err := r.db.QueryRow(ctx, query, arg).Scan(&s.ID, &s.Name, &s.Description); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *referenceRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1,$2) RETURNING id`,
		category.Name, category.Description,
	).Scan(&category.ID)
	return mapReferenceConstraint(err)
}

func (r *referenceRepository) CreatePriority(ctx context.Context, priority *domain.Priority) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO priorities (name, level, description) VALUES ($1,$2,$3) RETURNING id`,
		priority.Name, priority.Level, priority.Description,
	).Scan(&priority.ID)
	return mapReferenceConstraint(err)
}

func (r *referenceRepository) CreateStatus(ctx context.Context, status *domain.Status) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO statuses (name, description) VALUES ($1,$2) RETURNING id`,
		status.Name, status.Description,
	).Scan(&status.ID)
	return mapReferenceConstraint(err)
}

// ErrDuplicateReference is returned when a vocabulary name or level is taken.
var ErrDuplicateReference = errors.New("reference already exists")

func mapReferenceConstraint(err error) error {
	if _, ok := uniqueViolation(err); ok {
		return ErrDuplicateReference
	}
	return err
}
