package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ReferenceService manages the category, priority and status vocabularies.
type ReferenceService struct {
	refs   repository.ReferenceRepository
	logger *zap.Logger
}

// NewReferenceService builds the service.
func NewReferenceService(refs repository.ReferenceRepository, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{refs: refs, logger: logger}
}

// Catalog is the full vocabulary used to render form choices.
type Catalog struct {
	Categories []domain.Category `json:"categories"`
	Priorities []domain.Priority `json:"priorities"`
	Statuses   []domain.Status   `json:"statuses"`
}

// Catalog lists every vocabulary.
func (s *ReferenceService) Catalog(ctx context.Context) (*Catalog, error) {
	categories, err := s.refs.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	priorities, err := s.refs.ListPriorities(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := s.refs.ListStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{Categories: categories, Priorities: priorities, Statuses: statuses}, nil
}

// EnsureDefaults seeds missing vocabulary rows and resolves the default
// priority and status by name.
func (s *ReferenceService) EnsureDefaults(ctx context.Context, priorityName, statusName string) (domain.ReferenceDefaults, error) {
	var defaults domain.ReferenceDefaults

	categories, err := s.refs.ListCategories(ctx)
	if err != nil {
		return defaults, err
	}
	if len(categories) == 0 {
		for _, c := range domain.DefaultCategories {
			category := c
			if err := s.refs.CreateCategory(ctx, &category); err != nil && !errors.Is(err, repository.ErrDuplicateReference) {
				return defaults, fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
	}
	for _, p := range domain.DefaultPriorities {
		if _, err := s.refs.GetPriorityByName(ctx, p.Name); errors.Is(err, repository.ErrNotFound) {
			priority := p
			if err := s.refs.CreatePriority(ctx, &priority); err != nil && !errors.Is(err, repository.ErrDuplicateReference) {
				return defaults, fmt.Errorf("seed priority %s: %w", p.Name, err)
			}
		} else if err != nil {
			return defaults, err
		}
	}
	for _, st := range domain.DefaultStatuses {
		if _, err := s.refs.GetStatusByName(ctx, st.Name); errors.Is(err, repository.ErrNotFound) {
			status := st
			if err := s.refs.CreateStatus(ctx, &status); err != nil && !errors.Is(err, repository.ErrDuplicateReference) {
				return defaults, fmt.Errorf("seed status %s: %w", st.Name, err)
			}
		} else if err != nil {
			return defaults, err
		}
	}

	priority, err := s.refs.GetPriorityByName(ctx, priorityName)
	if err != nil {
		return defaults, fmt.Errorf("default priority %q: %w", priorityName, err)
	}
	status, err := s.refs.GetStatusByName(ctx, statusName)
	if err != nil {
		return defaults, fmt.Errorf("default status %q: %w", statusName, err)
	}
	defaults.Priority = *priority
	defaults.Status = *status
	s.logger.Info("reference defaults resolved",
		zap.String("priority", priority.Name),
		zap.String("status", status.Name))
	return defaults, nil
}

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string `form:"name" validate:"required,max=100"`
	Description string `form:"description"`
}

// PriorityInput creates a priority.
type PriorityInput struct {
	Name        string `form:"name" validate:"required,max=50"`
	Level       int    `form:"level" validate:"min=1"`
	Description string `form:"description"`
}

// StatusInput creates a status.
type StatusInput struct {
	Name        string `form:"name" validate:"required,max=50"`
	Description string `form:"description"`
}

// CreateCategory adds a category.
func (s *ReferenceService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if fields := validateStruct(input); !fields.Empty() {
		return nil, fields
	}
	category := &domain.Category{Name: input.Name, Description: strings.TrimSpace(input.Description)}
	if err := s.refs.CreateCategory(ctx, category); err != nil {
		return nil, duplicateReference(err, "Category with this name already exists.")
	}
	return category, nil
}

// CreatePriority adds a priority.
func (s *ReferenceService) CreatePriority(ctx context.Context, input PriorityInput) (*domain.Priority, error) {
	input.Name = strings.TrimSpace(input.Name)
	if fields := validateStruct(input); !fields.Empty() {
		return nil, fields
	}
	priority := &domain.Priority{Name: input.Name, Level: input.Level, Description: strings.TrimSpace(input.Description)}
	if err := s.refs.CreatePriority(ctx, priority); err != nil {
		return nil, duplicateReference(err, "Priority with this name or level already exists.")
	}
	return priority, nil
}

// CreateStatus adds a status.
func (s *ReferenceService) CreateStatus(ctx context.Context, input StatusInput) (*domain.Status, error) {
	input.Name = strings.TrimSpace(input.Name)
	if fields := validateStruct(input); !fields.Empty() {
		return nil, fields
	}
	status := &domain.Status{Name: input.Name, Description: strings.TrimSpace(input.Description)}
	if err := s.refs.CreateStatus(ctx, status); err != nil {
		return nil, duplicateReference(err, "Status with this name already exists.")
	}
	return status, nil
}

func duplicateReference(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicateReference) {
		return apperrors.FieldErrors{"name": {message}}
	}
	return err
}
