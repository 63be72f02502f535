package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func pdfBytes(size int) []byte {
	data := bytes.Repeat([]byte("0"), size)
	copy(data, "%PDF-1.4\n")
	return data
}

func TestCreateTicketAppliesDefaultsAndSequentialIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")

	first, err := env.tickets.CreateTicket(ctx, customer, TicketInput{Title: " Printer ", Description: "It jams"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	second, err := env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "VPN", Description: "Drops"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if first.TicketID != "TKT1001" || second.TicketID != "TKT1002" {
		t.Fatalf("ticket ids = %s, %s", first.TicketID, second.TicketID)
	}
	if first.Title != "Printer" || first.Channel != domain.ChannelForm || first.AgentID != nil {
		t.Fatalf("ticket = %+v", first)
	}
	if *first.PriorityID != env.defaults.Priority.ID || *first.StatusID != env.defaults.Status.ID {
		t.Fatalf("defaults not applied: %+v", first)
	}

	_, err = env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "", Description: ""})
	var fields apperrors.FieldErrors
	if !errors.As(err, &fields) || len(fields["title"]) == 0 || len(fields["description"]) == 0 {
		t.Fatalf("validation err = %v", err)
	}

	missing := int64(999)
	_, err = env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "x", Description: "y", CategoryID: &missing})
	if !errors.As(err, &fields) || len(fields["category"]) == 0 {
		t.Fatalf("unknown category err = %v", err)
	}
}

func TestCreateTicketAttachments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")

	_, err := env.tickets.CreateTicket(ctx, customer, TicketInput{
		Title: "Big", Description: "file", Attachment: &AttachmentInput{FileName: "big.pdf", Data: pdfBytes(6 * 1024 * 1024)},
	})
	if !errors.Is(err, domain.ErrAttachmentTooLarge) {
		t.Fatalf("6MB err = %v", err)
	}
	_, err = env.tickets.CreateTicket(ctx, customer, TicketInput{
		Title: "Text", Description: "file", Attachment: &AttachmentInput{FileName: "notes.pdf", Data: []byte("just some text")},
	})
	if !errors.Is(err, domain.ErrUnsupportedAttachmentType) {
		t.Fatalf("text err = %v", err)
	}

	ticket, err := env.tickets.CreateTicket(ctx, customer, TicketInput{
		Title: "Invoice", Description: "attached", Attachment: &AttachmentInput{FileName: "invoice.pdf", Data: pdfBytes(4 * 1024 * 1024)},
	})
	if err != nil {
		t.Fatalf("CreateTicket with 4MB pdf: %v", err)
	}
	attachments, err := env.store.Attachments().ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("ListByTicket: %v", err)
	}
	if len(attachments) != 1 || attachments[0].MimeType != "application/pdf" || attachments[0].UploadedByID != customer.ID {
		t.Fatalf("attachments = %+v", attachments)
	}
	if _, err := os.Stat(filepath.Join(env.mediaRoot, filepath.FromSlash(attachments[0].FilePath))); err != nil {
		t.Fatalf("stored file: %v", err)
	}
}

type failingAttachments struct{}

func (failingAttachments) Create(context.Context, *domain.TicketAttachment) error {
	return errors.New("disk full")
}

func (failingAttachments) ListByTicket(context.Context, int64) ([]domain.TicketAttachment, error) {
	return nil, nil
}

type failingAttachmentStore struct {
	repository.Store
}

func (s failingAttachmentStore) Attachments() repository.AttachmentRepository {
	return failingAttachments{}
}

func (s failingAttachmentStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.InTx(ctx, func(tx repository.Store) error { return fn(failingAttachmentStore{tx}) })
}

func TestAgentCreateTicketIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	agent := env.user(t, domain.RoleAgent, "a@example.com", "agent")

	svc := NewTicketService(TicketDependencies{
		Store:    failingAttachmentStore{env.store},
		Files:    env.files,
		Defaults: env.defaults,
	})
	_, err := svc.AgentCreateTicket(ctx, agent, AgentTicketInput{
		TicketInput: TicketInput{Title: "Phone", Description: "call", Attachment: &AttachmentInput{FileName: "a.pdf", Data: pdfBytes(1024)}},
		CustomerID:  customer.ID,
		Channel:     "chat",
	})
	if err == nil {
		t.Fatal("AgentCreateTicket succeeded with failing attachment insert")
	}
	if n, _ := env.store.Tickets().Count(ctx, repository.TicketFilter{}); n != 0 {
		t.Fatalf("ticket count = %d, want 0", n)
	}
	entries, _ := os.ReadDir(filepath.Join(env.mediaRoot, AttachmentDir))
	if len(entries) != 0 {
		t.Fatalf("orphaned files: %d", len(entries))
	}
}

func TestAgentCreateTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	agent := env.user(t, domain.RoleAgent, "a@example.com", "agent")

	ticket, err := env.tickets.AgentCreateTicket(ctx, agent, AgentTicketInput{
		TicketInput: TicketInput{Title: "Phone", Description: "call"},
		CustomerID:  customer.ID,
		Channel:     "chat",
	})
	if err != nil {
		t.Fatalf("AgentCreateTicket: %v", err)
	}
	if ticket.Channel != domain.ChannelChat || ticket.AgentID == nil || *ticket.AgentID != agent.ID {
		t.Fatalf("ticket = %+v", ticket)
	}

	_, err = env.tickets.AgentCreateTicket(ctx, agent, AgentTicketInput{
		TicketInput: TicketInput{Title: "Self", Description: "x"},
		CustomerID:  agent.ID,
		Channel:     domain.ChannelForm,
	})
	if !errors.Is(err, domain.ErrNotACustomer) {
		t.Fatalf("non-customer err = %v", err)
	}
}

func TestTicketFilterInput(t *testing.T) {
	filter, fields := TicketFilterInput{Priority: "abc", Channel: "chat", ToDate: "2024-03-01", FromDate: "bad"}.Filter()
	if len(fields["priority"]) == 0 || len(fields["from_date"]) == 0 {
		t.Fatalf("fields = %v", fields)
	}
	if filter.PriorityID != nil || filter.CreatedFrom != nil {
		t.Fatalf("invalid fields applied: %+v", filter)
	}
	if filter.Channel == nil || *filter.Channel != domain.ChannelChat {
		t.Fatalf("channel = %v", filter.Channel)
	}
	late := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	if filter.CreatedTo == nil || filter.CreatedTo.Before(late) {
		t.Fatalf("to_date not inclusive: %v", filter.CreatedTo)
	}
}

func TestListTicketsOrdersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	other := env.user(t, domain.RoleCustomer, "d@example.com", "other")

	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	env.store.SetClock(func() time.Time { return clock })
	for i := 0; i < 12; i++ {
		clock = clock.Add(time.Hour)
		if _, err := env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "t", Description: "d"}); err != nil {
			t.Fatalf("CreateTicket: %v", err)
		}
	}
	if _, err := env.tickets.CreateTicket(ctx, other, TicketInput{Title: "t", Description: "d"}); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	page, err := env.tickets.ListTickets(ctx, repository.TicketFilter{}, "abc")
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if page.Page.Number != 1 || len(page.Tickets) != 10 || page.Page.TotalCount != 13 {
		t.Fatalf("page = %+v", page.Page)
	}
	if page.Tickets[0].TicketID != "TKT1013" || page.Tickets[1].TicketID != "TKT1012" {
		t.Fatalf("not newest first: %s, %s", page.Tickets[0].TicketID, page.Tickets[1].TicketID)
	}

	last, err := env.tickets.ListTickets(ctx, repository.TicketFilter{}, "9999")
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if last.Page.Number != 2 || len(last.Tickets) != 3 || !last.Page.HasPrevious {
		t.Fatalf("last page = %+v with %d tickets", last.Page, len(last.Tickets))
	}

	own, err := env.tickets.ListCustomerTickets(ctx, other, "")
	if err != nil {
		t.Fatalf("ListCustomerTickets: %v", err)
	}
	if own.Page.TotalCount != 1 || own.Tickets[0].CustomerID != other.ID {
		t.Fatalf("own tickets = %+v", own)
	}

	from := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)
	ranged, err := env.tickets.ListTickets(ctx, repository.TicketFilter{CreatedFrom: &from}, "")
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	// tickets at 15:00..21:00 plus the last one at 21:00
	if ranged.Page.TotalCount != 8 {
		t.Fatalf("from filter count = %d", ranged.Page.TotalCount)
	}
}

func TestListTicketsSingleFieldFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c1 := env.user(t, domain.RoleCustomer, "c1@example.com", "c1")
	c2 := env.user(t, domain.RoleCustomer, "c2@example.com", "c2")
	a1 := env.user(t, domain.RoleAgent, "a1@example.com", "a1")
	a2 := env.user(t, domain.RoleAgent, "a2@example.com", "a2")
	low := env.priority(t, "Low")
	urgent := env.priority(t, "Urgent")
	open := env.status(t, "Open")
	resolved := env.status(t, "Resolved")
	categories := map[string]int64{}
	list, err := env.store.References().ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	for _, c := range list {
		categories[c.Name] = c.ID
	}
	technical, billing := categories["Technical"], categories["Billing"]

	seed := []domain.Ticket{
		{CustomerID: c1.ID, AgentID: &a1.ID, PriorityID: &low.ID, StatusID: &open.ID, CategoryID: &technical,
			Channel: domain.ChannelForm, CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		{CustomerID: c1.ID, AgentID: &a2.ID, PriorityID: &urgent.ID, StatusID: &resolved.ID, CategoryID: &billing,
			Channel: domain.ChannelChat, CreatedAt: time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)},
		{CustomerID: c2.ID, PriorityID: &low.ID, StatusID: &resolved.ID, CategoryID: &technical,
			Channel: domain.ChannelChat, CreatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{CustomerID: c2.ID, AgentID: &a1.ID, PriorityID: &urgent.ID, StatusID: &open.ID,
			Channel: domain.ChannelOther, CreatedAt: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)},
	}
	for i := range seed {
		seed[i].Title = "t"
		seed[i].Description = "d"
		if err := env.store.Tickets().Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	id := func(v int64) string { return strconv.FormatInt(v, 10) }
	tests := []struct {
		name  string
		input TicketFilterInput
		want  []string
	}{
		{"customer", TicketFilterInput{Customer: id(c1.ID)}, []string{"TKT1001", "TKT1002"}},
		{"agent", TicketFilterInput{Agent: id(a1.ID)}, []string{"TKT1001", "TKT1004"}},
		{"priority", TicketFilterInput{Priority: id(low.ID)}, []string{"TKT1001", "TKT1003"}},
		{"status", TicketFilterInput{Status: id(resolved.ID)}, []string{"TKT1002", "TKT1003"}},
		{"category", TicketFilterInput{Category: id(technical)}, []string{"TKT1001", "TKT1003"}},
		{"channel", TicketFilterInput{Channel: "chat"}, []string{"TKT1002", "TKT1003"}},
		{"from_date", TicketFilterInput{FromDate: "2024-03-02"}, []string{"TKT1003", "TKT1004"}},
		{"to_date includes the whole day", TicketFilterInput{ToDate: "2024-03-01"}, []string{"TKT1001", "TKT1002"}},
		{"no match", TicketFilterInput{Agent: id(a2.ID), Channel: "form"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, fields := tt.input.Filter()
			if len(fields) != 0 {
				t.Fatalf("Filter: %v", fields)
			}
			page, err := env.tickets.ListTickets(ctx, filter, "")
			if err != nil {
				t.Fatalf("ListTickets: %v", err)
			}
			var got []string
			for _, ticket := range page.Tickets {
				got = append(got, ticket.TicketID)
			}
			sort.Strings(got)
			if !reflect.DeepEqual(got, tt.want) || page.Page.TotalCount != len(tt.want) {
				t.Fatalf("tickets = %v (total %d), want %v", got, page.Page.TotalCount, tt.want)
			}
		})
	}
}

func TestTicketDetailAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	stranger := env.user(t, domain.RoleCustomer, "d@example.com", "stranger")
	agent := env.user(t, domain.RoleAgent, "a@example.com", "agent")

	ticket, err := env.tickets.CreateTicket(ctx, owner, TicketInput{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := env.tickets.AddComment(ctx, agent, ticket.TicketID, CommentInput{Content: "Looking into it"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if _, err := env.tickets.GetTicketDetail(ctx, stranger, ticket.TicketID); !errors.Is(err, domain.ErrTicketAccessDenied) {
		t.Fatalf("stranger err = %v", err)
	}
	if _, err := env.tickets.GetTicketDetail(ctx, owner, "TKT9999"); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	detail, err := env.tickets.GetTicketDetail(ctx, owner, ticket.TicketID)
	if err != nil {
		t.Fatalf("GetTicketDetail: %v", err)
	}
	if len(detail.Comments) != 1 || detail.Comments[0].UserID != agent.ID {
		t.Fatalf("comments = %+v", detail.Comments)
	}
	if detail.Attachments == nil || detail.Escalations == nil {
		t.Fatal("empty lists should be non-nil")
	}
}

func TestEscalateRecordsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "a@x.com", "a")
	agent := env.user(t, domain.RoleAgent, "agent@x.com", "agent")
	low := env.priority(t, "Low")
	urgent := env.priority(t, "Urgent")

	var published []events.Event
	dispatcher := events.NewBus(nil)
	dispatcher.Subscribe(events.EventTicketEscalated, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	env.tickets.dispatcher = dispatcher

	ticket, err := env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "Outage", Description: "down", PriorityID: &low.ID})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if _, _, err := env.tickets.Escalate(ctx, agent, ticket.TicketID, EscalationInput{NewPriorityID: &urgent.ID, Reason: "   "}); !errors.Is(err, domain.ErrReasonRequired) {
		t.Fatalf("blank reason err = %v", err)
	}

	updated, escalation, err := env.tickets.Escalate(ctx, agent, ticket.TicketID, EscalationInput{NewPriorityID: &urgent.ID, Reason: "SLA breach"})
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if *updated.PriorityID != urgent.ID {
		t.Fatalf("priority = %d, want %d", *updated.PriorityID, urgent.ID)
	}
	if *escalation.PreviousPriority != low.ID || *escalation.NewPriority != urgent.ID {
		t.Fatalf("escalation priorities = %d -> %d", *escalation.PreviousPriority, *escalation.NewPriority)
	}
	if *escalation.PreviousStatus != *escalation.NewStatus || escalation.EscalatedByID != agent.ID {
		t.Fatalf("escalation = %+v", escalation)
	}

	stored, err := env.store.Escalations().ListByTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("ListByTicket: %v", err)
	}
	if len(stored) != 1 || stored[0].Reason != "SLA breach" {
		t.Fatalf("escalations = %+v", stored)
	}
	if len(published) != 1 || published[0].TicketID != ticket.TicketID {
		t.Fatalf("published = %+v", published)
	}
}

func TestEscalateStampsResolvedOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	agent := env.user(t, domain.RoleAgent, "a@example.com", "agent")
	resolved := env.status(t, "Resolved")
	open := env.status(t, "Open")

	ticket, err := env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env.tickets.now = func() time.Time { return first }
	updated, _, err := env.tickets.Escalate(ctx, agent, ticket.TicketID, EscalationInput{NewStatusID: &resolved.ID, Reason: "fixed"})
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(first) {
		t.Fatalf("ResolvedAt = %v", updated.ResolvedAt)
	}

	env.tickets.now = func() time.Time { return first.Add(48 * time.Hour) }
	if _, _, err := env.tickets.Escalate(ctx, agent, ticket.TicketID, EscalationInput{NewStatusID: &open.ID, Reason: "reopened"}); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	again, _, err := env.tickets.Escalate(ctx, agent, ticket.TicketID, EscalationInput{NewStatusID: &resolved.ID, Reason: "fixed again"})
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if !again.ResolvedAt.Equal(first) {
		t.Fatalf("ResolvedAt moved to %v", again.ResolvedAt)
	}
}

func TestAssignTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer := env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	admin := env.user(t, domain.RoleSuperuser, "root@example.com", "root")
	agent := env.user(t, domain.RoleAgent, "a@example.com", "agent")

	ticket, err := env.tickets.CreateTicket(ctx, customer, TicketInput{Title: "t", Description: "d"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := env.tickets.AssignTicket(ctx, admin, ticket.TicketID, customer.ID); !errors.Is(err, domain.ErrNotAnAgentAssignee) {
		t.Fatalf("assign to customer err = %v", err)
	}
	updated, err := env.tickets.AssignTicket(ctx, admin, ticket.TicketID, agent.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	if updated.AgentID == nil || *updated.AgentID != agent.ID {
		t.Fatalf("agent = %v", updated.AgentID)
	}
	escalations, _ := env.store.Escalations().ListByTicket(ctx, ticket.ID)
	if len(escalations) != 1 || escalations[0].Reason != "Assigned to agent by root" || escalations[0].PreviousAgentID != nil {
		t.Fatalf("escalations = %+v", escalations)
	}

	dash, err := env.tickets.AgentDashboard(ctx, agent)
	if err != nil {
		t.Fatalf("AgentDashboard: %v", err)
	}
	if dash.AssignedCount != 1 || dash.OpenCount != 1 || dash.TotalTickets != 1 || len(dash.Recent) != 1 {
		t.Fatalf("dashboard = %+v", dash)
	}
}

func TestStaffServiceOverview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, domain.RoleCustomer, "c@example.com", "cust")
	env.user(t, domain.RoleAgent, "a@example.com", "agent")
	newUnverifiedAgent(t, env)
	env.user(t, domain.RoleSuperuser, "root@example.com", "root")

	staff := NewStaffService(env.store)
	overview, err := staff.AdminOverview(ctx)
	if err != nil {
		t.Fatalf("AdminOverview: %v", err)
	}
	want := AdminOverview{Customers: 1, Agents: 2, UnverifiedAgents: 1, Superusers: 1}
	if *overview != want {
		t.Fatalf("overview = %+v, want %+v", *overview, want)
	}
	agents, err := staff.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if len(agents) != 2 || agents[0].Name != "Alex" {
		t.Fatalf("agents = %+v", agents)
	}
}

func TestStringPreviewKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		body string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"abcdefghij", 6, "abc..."},
		{"ééééééé", 6, "ééé..."},
		{"日本語のテキスト", 5, "日本..."},
		{"héllo", 2, "hé"},
	}
	for _, tt := range tests {
		got := stringPreview(tt.body, tt.max)
		if got != tt.want || !utf8.ValidString(got) {
			t.Fatalf("stringPreview(%q, %d) = %q, want %q", tt.body, tt.max, got, tt.want)
		}
	}
}
