package dto

import "github.com/spec-kit/helpdesk/internal/domain"

// PriorityResponse is a priority with its level.
type PriorityResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// ReferenceResponse is a category or status.
type ReferenceResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CatalogResponse lists every vocabulary.
type CatalogResponse struct {
	Categories []ReferenceResponse `json:"categories"`
	Priorities []PriorityResponse  `json:"priorities"`
	Statuses   []ReferenceResponse `json:"statuses"`
	Channels   []domain.Channel    `json:"channels"`
}

// NewCatalogResponse converts the vocabularies.
func NewCatalogResponse(categories []domain.Category, priorities []domain.Priority, statuses []domain.Status) CatalogResponse {
	resp := CatalogResponse{
		Categories: make([]ReferenceResponse, 0, len(categories)),
		Priorities: make([]PriorityResponse, 0, len(priorities)),
		Statuses:   make([]ReferenceResponse, 0, len(statuses)),
		Channels:   domain.Channels,
	}
	for _, c := range categories {
		resp.Categories = append(resp.Categories, ReferenceResponse{ID: c.ID, Name: c.Name, Description: c.Description})
	}
	for _, p := range priorities {
		resp.Priorities = append(resp.Priorities, PriorityResponse{ID: p.ID, Name: p.Name, Level: p.Level, Description: p.Description})
	}
	for _, s := range statuses {
		resp.Statuses = append(resp.Statuses, ReferenceResponse{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	return resp
}
