package memstore

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type comments Store

func (r *comments) Create(_ context.Context, comment *domain.TicketComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	comment.ID = (*Store)(r).next("comments")
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = r.now()
	}
	r.data.comments[comment.ID] = *comment
	(*Store)(r).touch("comments", comment.ID)
	return nil
}

func (r *comments) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketComment
	for _, c := range r.data.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type attachments Store

func (r *attachments) Create(_ context.Context, attachment *domain.TicketAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.tickets[attachment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	attachment.ID = (*Store)(r).next("attachments")
	if attachment.UploadedAt.IsZero() {
		attachment.UploadedAt = r.now()
	}
	r.data.attachments[attachment.ID] = *attachment
	(*Store)(r).touch("attachments", attachment.ID)
	return nil
}

func (r *attachments) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketAttachment
	for _, a := range r.data.attachments {
		if a.TicketID == ticketID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type escalations Store

func (r *escalations) Create(_ context.Context, escalation *domain.TicketEscalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.tickets[escalation.TicketID]; !ok {
		return repository.ErrNotFound
	}
	escalation.ID = (*Store)(r).next("escalations")
	if escalation.EscalatedAt.IsZero() {
		escalation.EscalatedAt = r.now()
	}
	r.data.escalations[escalation.ID] = *escalation
	(*Store)(r).touch("escalations", escalation.ID)
	return nil
}

func (r *escalations) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketEscalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketEscalation
	for _, e := range r.data.escalations {
		if e.TicketID == ticketID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].EscalatedAt.Equal(result[j].EscalatedAt) {
			return result[i].EscalatedAt.Before(result[j].EscalatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
