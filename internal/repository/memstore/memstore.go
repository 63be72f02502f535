// Package memstore is an in-memory implementation of the repository
// interfaces. The service uses it when no database is configured, and the
// tests use it as their store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type state struct {
	users       map[int64]domain.User
	tickets     map[int64]domain.Ticket
	categories  map[int64]domain.Category
	priorities  map[int64]domain.Priority
	statuses    map[int64]domain.Status
	comments    map[int64]domain.TicketComment
	attachments map[int64]domain.TicketAttachment
	escalations map[int64]domain.TicketEscalation
	seq         map[string]int64
}

func newState() state {
	return state{
		users:       map[int64]domain.User{},
		tickets:     map[int64]domain.Ticket{},
		categories:  map[int64]domain.Category{},
		priorities:  map[int64]domain.Priority{},
		statuses:    map[int64]domain.Status{},
		comments:    map[int64]domain.TicketComment{},
		attachments: map[int64]domain.TicketAttachment{},
		escalations: map[int64]domain.TicketEscalation{},
		seq:         map[string]int64{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.priorities {
		c.priorities[k] = v
	}
	for k, v := range s.statuses {
		c.statuses[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.attachments {
		c.attachments[k] = v
	}
	for k, v := range s.escalations {
		c.escalations[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

type rowKey struct {
	table string
	id    int64
}

// Store is a mutex-guarded in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data state
	now  func() time.Time

	// set on the view handed to an InTx callback
	parent *Store
	dirty  map[rowKey]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

// SetClock overrides the clock used for generated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// next allocates from the root store so that a transaction and the writes
// running beside it never hand out the same ID.
func (s *Store) next(table string) int64 {
	if s.parent != nil {
		s.parent.mu.Lock()
		defer s.parent.mu.Unlock()
		return s.parent.next(table)
	}
	s.data.seq[table]++
	return s.data.seq[table]
}

func (s *Store) touch(table string, id int64) {
	if s.dirty != nil {
		s.dirty[rowKey{table, id}] = struct{}{}
	}
}

func (s *Store) Users() repository.UserRepository { return (*users)(s) }
func (s *Store) Tickets() repository.TicketRepository { return (*tickets)(s) }
func (s *Store) References() repository.ReferenceRepository { return (*references)(s) }
func (s *Store) Comments() repository.CommentRepository { return (*comments)(s) }
func (s *Store) Attachments() repository.AttachmentRepository { return (*attachments)(s) }
func (s *Store) Escalations() repository.EscalationRepository { return (*escalations)(s) }

// InTx runs fn against a private copy of the data. Rows written through the
// copy are merged back when fn returns nil and discarded otherwise, so a
// rollback never touches rows written outside the transaction. Transactions
// are serialized with each other. Sequences are not rolled back, matching
// Postgres.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := &Store{
		data:   s.data.clone(),
		now:    s.now,
		parent: s,
		dirty:  map[rowKey]struct{}{},
	}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *Store) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range tx.dirty {
		switch key.table {
		case "users":
			s.data.users[key.id] = tx.data.users[key.id]
		case "tickets":
			s.data.tickets[key.id] = tx.data.tickets[key.id]
		case "categories":
			s.data.categories[key.id] = tx.data.categories[key.id]
		case "priorities":
			s.data.priorities[key.id] = tx.data.priorities[key.id]
		case "statuses":
			s.data.statuses[key.id] = tx.data.statuses[key.id]
		case "comments":
			s.data.comments[key.id] = tx.data.comments[key.id]
		case "attachments":
			s.data.attachments[key.id] = tx.data.attachments[key.id]
		case "escalations":
			s.data.escalations[key.id] = tx.data.escalations[key.id]
		}
		s.touch(key.table, key.id)
	}
}

type users Store

func (r *users) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return domain.ErrDuplicateUsername
		}
	}
	user.ID = (*Store)(r).next("users")
	if user.DateJoined.IsZero() {
		user.DateJoined = r.now()
	}
	r.data.users[user.ID] = *user
	(*Store)(r).touch("users", user.ID)
	return nil
}

func (r *users) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.data.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return domain.ErrDuplicateUsername
		}
	}
	r.data.users[user.ID] = *user
	(*Store)(r).touch("users", user.ID)
	return nil
}

func (r *users) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *users) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.data.users {
		if match(user) {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *users) GetByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	return r.find(func(u domain.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (r *users) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *users) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := r.find(func(u domain.User) bool { return u.Username == username })
	return err == nil, nil
}

func (r *users) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.User
	for _, user := range r.data.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type tickets Store

func (r *tickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = (*Store)(r).next("tickets")
	ticket.TicketID = domain.FormatTicketID(ticket.ID)
	now := r.now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	r.data.tickets[ticket.ID] = *ticket
	(*Store)(r).touch("tickets", ticket.ID)
	return nil
}

func (r *tickets) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	ticket.TicketID = existing.TicketID
	ticket.CreatedAt = existing.CreatedAt
	ticket.UpdatedAt = r.now()
	r.data.tickets[ticket.ID] = *ticket
	(*Store)(r).touch("tickets", ticket.ID)
	return nil
}

func (r *tickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.data.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ticket, nil
}

func (r *tickets) GetByTicketID(_ context.Context, ticketID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.data.tickets {
		if ticket.TicketID == ticketID {
			t := ticket
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tickets) matching(filter repository.TicketFilter) []domain.Ticket {
	var result []domain.Ticket
	for _, ticket := range r.data.tickets {
		t := ticket
		if filter.Matches(&t) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (r *tickets) List(_ context.Context, filter repository.TicketFilter, limit, offset int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(filter)
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *tickets) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}
