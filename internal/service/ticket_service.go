package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	store              repository.Store
	files              storage.FileStore
	dispatcher         events.Dispatcher
	logger             *zap.Logger
	defaults           domain.ReferenceDefaults
	resolvedStatus     string
	pageSize           int
	maxAttachmentBytes int64
	now                func() time.Time
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	Store              repository.Store
	Files              storage.FileStore
	Dispatcher         events.Dispatcher
	Logger             *zap.Logger
	Defaults           domain.ReferenceDefaults
	ResolvedStatus     string
	PageSize           int
	MaxAttachmentBytes int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	maxBytes := deps.MaxAttachmentBytes
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &TicketService{
		store:              deps.Store,
		files:              deps.Files,
		dispatcher:         deps.Dispatcher,
		logger:             logger,
		defaults:           deps.Defaults,
		resolvedStatus:     deps.ResolvedStatus,
		pageSize:           pageSize,
		maxAttachmentBytes: maxBytes,
		now:                time.Now,
	}
}

// TicketInput holds the fields a customer fills in.
type TicketInput struct {
	Title       string           `form:"title" validate:"required,max=255"`
	Description string           `form:"description" validate:"required"`
	CategoryID  *int64           `form:"category"`
	PriorityID  *int64           `form:"priority"`
	Attachment  *AttachmentInput `form:"attachments" validate:"-"`
}

// AgentTicketInput holds the fields an agent fills in on behalf of a customer.
type AgentTicketInput struct {
	TicketInput
	CustomerID int64          `form:"customer" validate:"required"`
	StatusID   *int64         `form:"status"`
	Channel    domain.Channel `form:"channel" validate:"required,oneof=FORM CHAT OTHER"`
}

// CreateTicket opens a FORM ticket for customer. Priority and status fall
// back to the configured defaults.
func (s *TicketService) CreateTicket(ctx context.Context, customer *domain.User, input TicketInput) (*domain.Ticket, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if fields := validateStruct(input); !fields.Empty() {
		return nil, fields
	}
	attachment, err := s.checkOptionalAttachment(input.Attachment)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		CustomerID:  customer.ID,
		CategoryID:  input.CategoryID,
		PriorityID:  input.PriorityID,
		Channel:     domain.ChannelForm,
		IsActive:    true,
	}
	if err := s.create(ctx, customer, ticket, attachment, false); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AgentCreateTicket opens a ticket for a customer with agent as assignee. The
// ticket and its attachment row commit together or not at all.
func (s *TicketService) AgentCreateTicket(ctx context.Context, agent *domain.User, input AgentTicketInput) (*domain.Ticket, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if channel, ok := domain.ParseChannel(string(input.Channel)); ok {
		input.Channel = channel
	}
	if fields := validateStruct(input); !fields.Empty() {
		return nil, fields
	}
	attachment, err := s.checkOptionalAttachment(input.Attachment)
	if err != nil {
		return nil, err
	}

	agentID := agent.ID
	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		CustomerID:  input.CustomerID,
		AgentID:     &agentID,
		CategoryID:  input.CategoryID,
		PriorityID:  input.PriorityID,
		StatusID:    input.StatusID,
		Channel:     input.Channel,
		IsActive:    true,
	}
	if err := s.create(ctx, agent, ticket, attachment, true); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) checkOptionalAttachment(a *AttachmentInput) (*checkedAttachment, error) {
	if a == nil || (len(a.Data) == 0 && a.FileName == "") {
		return nil, nil
	}
	return checkAttachment(a, s.maxAttachmentBytes)
}

// create persists ticket and its attachment in one transaction. When
// checkCustomer is set the ticket's customer must hold the customer role.
func (s *TicketService) create(ctx context.Context, actor *domain.User, ticket *domain.Ticket, attachment *checkedAttachment, checkCustomer bool) error {
	var storedPath string
	if attachment != nil {
		path, err := s.files.Save(ctx, AttachmentDir, attachment.Extension, attachment.Data)
		if err != nil {
			return fmt.Errorf("store attachment: %w", err)
		}
		storedPath = path
	}

	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := s.resolveReferences(ctx, tx, ticket); err != nil {
			return err
		}
		if checkCustomer {
			customer, err := tx.Users().GetByID(ctx, ticket.CustomerID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.ErrNotACustomer
				}
				return err
			}
			if customer.Role != domain.RoleCustomer {
				return domain.ErrNotACustomer
			}
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		if attachment == nil {
			return nil
		}
		record := &domain.TicketAttachment{
			TicketID:     ticket.ID,
			UploadedByID: actor.ID,
			FilePath:     storedPath,
			FileName:     attachment.FileName,
			MimeType:     attachment.MimeType,
			SizeBytes:    int64(len(attachment.Data)),
		}
		if err := tx.Attachments().Create(ctx, record); err != nil {
			return fmt.Errorf("create attachment: %w", err)
		}
		return nil
	})
	if err != nil {
		if storedPath != "" {
			if rmErr := s.files.Remove(ctx, storedPath); rmErr != nil {
				s.logger.Warn("failed to remove orphaned attachment", zap.String("path", storedPath), zap.Error(rmErr))
			}
		}
		return err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.TicketID),
		zap.Int64("customer_id", ticket.CustomerID),
		zap.String("channel", string(ticket.Channel)))
	s.publishEvent(ctx, events.New(events.EventTicketCreated, ticket.TicketID, actor.ID, events.TicketCreatedPayload{
		Title:      ticket.Title,
		CustomerID: ticket.CustomerID,
		AgentID:    ticket.AgentID,
		Channel:    string(ticket.Channel),
		PriorityID: ticket.PriorityID,
	}))
	return nil
}

// resolveReferences checks the chosen vocabulary rows exist and applies the
// default priority and status where none was chosen.
func (s *TicketService) resolveReferences(ctx context.Context, tx repository.Store, ticket *domain.Ticket) error {
	fields := apperrors.FieldErrors{}
	if ticket.CategoryID != nil {
		if _, err := tx.References().GetCategory(ctx, *ticket.CategoryID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			fields.Add("category", "Select a valid choice.")
		}
	}
	if ticket.PriorityID != nil {
		if _, err := tx.References().GetPriority(ctx, *ticket.PriorityID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			fields.Add("priority", "Select a valid choice.")
		}
	} else if s.defaults.Priority.ID != 0 {
		id := s.defaults.Priority.ID
		ticket.PriorityID = &id
	}
	if ticket.StatusID != nil {
		if _, err := tx.References().GetStatus(ctx, *ticket.StatusID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			fields.Add("status", "Select a valid choice.")
		}
	} else if s.defaults.Status.ID != 0 {
		id := s.defaults.Status.ID
		ticket.StatusID = &id
	}
	return fields.Err()
}

// TicketFilterInput is the raw list filter as submitted by the agent.
type TicketFilterInput struct {
	Customer string `json:"customer" form:"customer"`
	Agent    string `json:"agent" form:"agent"`
	Priority string `json:"priority" form:"priority"`
	Status   string `json:"status" form:"status"`
	Category string `json:"category" form:"category"`
	Channel  string `json:"channel" form:"channel"`
	FromDate string `json:"from_date" form:"from_date"`
	ToDate   string `json:"to_date" form:"to_date"`
}

const dateLayout = "2006-01-02"

// Filter converts the raw input. Blank fields are omitted; malformed fields
// are reported and omitted. to_date includes the whole day.
func (in TicketFilterInput) Filter() (repository.TicketFilter, apperrors.FieldErrors) {
	var filter repository.TicketFilter
	fields := apperrors.FieldErrors{}

	ids := []struct {
		name   string
		raw    string
		target **int64
	}{
		{"customer", in.Customer, &filter.CustomerID},
		{"agent", in.Agent, &filter.AgentID},
		{"priority", in.Priority, &filter.PriorityID},
		{"status", in.Status, &filter.StatusID},
		{"category", in.Category, &filter.CategoryID},
	}
	for _, f := range ids {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields.Add(f.name, "Select a valid choice.")
			continue
		}
		*f.target = &id
	}

	if raw := strings.TrimSpace(in.Channel); raw != "" {
		if channel, ok := domain.ParseChannel(raw); ok {
			filter.Channel = &channel
		} else {
			fields.Add("channel", "Select a valid choice.")
		}
	}
	if raw := strings.TrimSpace(in.FromDate); raw != "" {
		if from, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
			filter.CreatedFrom = &from
		} else {
			fields.Add("from_date", "Enter a valid date.")
		}
	}
	if raw := strings.TrimSpace(in.ToDate); raw != "" {
		if to, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
			end := to.Add(24*time.Hour - time.Nanosecond)
			filter.CreatedTo = &end
		} else {
			fields.Add("to_date", "Enter a valid date.")
		}
	}
	return filter, fields
}

// TicketPage is one page of tickets, newest first.
type TicketPage struct {
	Tickets []domain.Ticket `json:"tickets"`
	Page    Page            `json:"page"`
}

// ListTickets returns the requested page of tickets matching filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter, rawPage string) (*TicketPage, error) {
	total, err := s.store.Tickets().Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	page := ResolvePage(rawPage, total, s.pageSize)
	tickets, err := s.store.Tickets().List(ctx, filter, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return &TicketPage{Tickets: tickets, Page: page}, nil
}

// ListCustomerTickets lists the customer's own tickets.
func (s *TicketService) ListCustomerTickets(ctx context.Context, customer *domain.User, rawPage string) (*TicketPage, error) {
	customerID := customer.ID
	return s.ListTickets(ctx, repository.TicketFilter{CustomerID: &customerID}, rawPage)
}

// TicketDetail is a ticket with its full activity.
type TicketDetail struct {
	Ticket      *domain.Ticket            `json:"ticket"`
	Comments    []domain.TicketComment    `json:"comments"`
	Attachments []domain.TicketAttachment `json:"attachments"`
	Escalations []domain.TicketEscalation `json:"escalations"`
}

// GetTicketDetail loads a ticket for viewer. Customers only see their own tickets.
func (s *TicketService) GetTicketDetail(ctx context.Context, viewer *domain.User, ticketID string) (*TicketDetail, error) {
	ticket, err := s.ticketFor(ctx, s.store, viewer, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.store.Attachments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	escalations, err := s.store.Escalations().ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{
		Ticket:      ticket,
		Comments:    nonNil(comments),
		Attachments: nonNil(attachments),
		Escalations: nonNil(escalations),
	}, nil
}

// CommentInput is a new comment.
type CommentInput struct {
	Content string `form:"content" validate:"required"`
}

// AddComment appends a comment from author.
func (s *TicketService) AddComment(ctx context.Context, author *domain.User, ticketID string, input CommentInput) (*domain.TicketComment, error) {
	input.Content = strings.TrimSpace(input.Content)
	if fields := validateStruct(input); !fields.Empty() {
		return nil, fields
	}
	ticket, err := s.ticketFor(ctx, s.store, author, ticketID)
	if err != nil {
		return nil, err
	}
	comment := &domain.TicketComment{
		TicketID: ticket.ID,
		UserID:   author.ID,
		Content:  input.Content,
	}
	if err := s.store.Comments().Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	s.publishEvent(ctx, events.New(events.EventCommentAdded, ticket.TicketID, author.ID, events.CommentAddedPayload{
		CommentID:   comment.ID,
		AuthorID:    author.ID,
		BodyPreview: stringPreview(comment.Content, 120),
	}))
	return comment, nil
}

func (s *TicketService) ticketFor(ctx context.Context, store repository.Store, viewer *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := store.Tickets().GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	if viewer.Role == domain.RoleCustomer && ticket.CustomerID != viewer.ID {
		return nil, domain.ErrTicketAccessDenied
	}
	return ticket, nil
}

// AgentDashboard summarises an agent's workload.
type AgentDashboard struct {
	AssignedCount int             `json:"assigned_count"`
	OpenCount     int             `json:"open_count"`
	ResolvedCount int             `json:"resolved_count"`
	TotalTickets  int             `json:"total_tickets"`
	Recent        []domain.Ticket `json:"recent"`
}

// AgentDashboard computes the counters shown on the agent landing page.
func (s *TicketService) AgentDashboard(ctx context.Context, agent *domain.User) (*AgentDashboard, error) {
	agentID := agent.ID
	assigned := repository.TicketFilter{AgentID: &agentID}

	var dash AgentDashboard
	var err error
	if dash.AssignedCount, err = s.store.Tickets().Count(ctx, assigned); err != nil {
		return nil, err
	}
	if dash.TotalTickets, err = s.store.Tickets().Count(ctx, repository.TicketFilter{}); err != nil {
		return nil, err
	}
	if s.defaults.Status.ID != 0 {
		statusID := s.defaults.Status.ID
		if dash.OpenCount, err = s.store.Tickets().Count(ctx, repository.TicketFilter{AgentID: &agentID, StatusID: &statusID}); err != nil {
			return nil, err
		}
	}
	if resolved, err := s.store.References().GetStatusByName(ctx, s.resolvedStatus); err == nil {
		if dash.ResolvedCount, err = s.store.Tickets().Count(ctx, repository.TicketFilter{AgentID: &agentID, StatusID: &resolved.ID}); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if dash.Recent, err = s.store.Tickets().List(ctx, assigned, 5, 0); err != nil {
		return nil, err
	}
	dash.Recent = nonNil(dash.Recent)
	return &dash, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// stringPreview shortens body to at most max runes.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
