package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type references Store

func (r *references) ListCategories(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Category, 0, len(r.data.categories))
	for _, c := range r.data.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *references) ListPriorities(_ context.Context) ([]domain.Priority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Priority, 0, len(r.data.priorities))
	for _, p := range r.data.priorities {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Level > result[j].Level })
	return result, nil
}

func (r *references) ListStatuses(_ context.Context) ([]domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Status, 0, len(r.data.statuses))
	for _, s := range r.data.statuses {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *references) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *references) GetPriority(_ context.Context, id int64) (*domain.Priority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.priorities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *references) GetStatus(_ context.Context, id int64) (*domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data.statuses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *references) GetPriorityByName(_ context.Context, name string) (*domain.Priority, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data.priorities {
		if strings.EqualFold(p.Name, name) {
			found := p
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *references) GetStatusByName(_ context.Context, name string) (*domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data.statuses {
		if strings.EqualFold(s.Name, name) {
			found := s
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *references) CreateCategory(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.data.categories {
		if c.Name == category.Name {
			return repository.ErrDuplicateReference
		}
	}
	category.ID = (*Store)(r).next("categories")
	r.data.categories[category.ID] = *category
	(*Store)(r).touch("categories", category.ID)
	return nil
}

func (r *references) CreatePriority(_ context.Context, priority *domain.Priority) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data.priorities {
		if p.Name == priority.Name || p.Level == priority.Level {
			return repository.ErrDuplicateReference
		}
	}
	priority.ID = (*Store)(r).next("priorities")
	r.data.priorities[priority.ID] = *priority
	(*Store)(r).touch("priorities", priority.ID)
	return nil
}

func (r *references) CreateStatus(_ context.Context, status *domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data.statuses {
		if s.Name == status.Name {
			return repository.ErrDuplicateReference
		}
	}
	status.ID = (*Store)(r).next("statuses")
	r.data.statuses[status.ID] = *status
	(*Store)(r).touch("statuses", status.ID)
	return nil
}
