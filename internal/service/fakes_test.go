package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "tikiti/internal/errors"
	"tikiti/internal/external"
	"tikiti/internal/models"

	"github.com/shopspring/decimal"
)

// In-memory stand-ins for the repository layer. They reproduce the guarded
// transition semantics of the SQL so the state-machine tests mean something.

type fakeEventStore struct {
	mu     sync.Mutex
	events map[int64]*models.Event
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: map[int64]*models.Event{}}
}

func (f *fakeEventStore) add(e *models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = e
}

func (f *fakeEventStore) GetByID(_ context.Context, id int64) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventStore) ListPayoutEligible(_ context.Context, endedBefore time.Time) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if e.Status == models.EventStatusEnded && e.EndsAt.Before(endedBefore) && !e.PayoutCompleted {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) MarkPayoutCompleted(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return fmt.Errorf("event %d: %w", id, apperrors.ErrNotFound)
	}
	e.PayoutCompleted = true
	return nil
}

type fakeTicketStore struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*models.Ticket
	events  *fakeEventStore
}

func newFakeTicketStore(events *fakeEventStore) *fakeTicketStore {
	return &fakeTicketStore{tickets: map[int64]*models.Ticket{}, events: events}
}

func (f *fakeTicketStore) add(t *models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		f.nextID++
		t.ID = f.nextID
	} else if t.ID > f.nextID {
		f.nextID = t.ID
	}
	f.tickets[t.ID] = t
}

func (f *fakeTicketStore) get(id int64) *models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

func (f *fakeTicketStore) CreatePending(_ context.Context, ticket *models.Ticket, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	active, maxNo := 0, 0
	for _, t := range f.tickets {
		if t.EventID != ticket.EventID {
			continue
		}
		if t.Status != models.TicketStatusCancelled && t.Status != models.TicketStatusExpired {
			active++
		}
		if t.TicketNo > maxNo {
			maxNo = t.TicketNo
		}
	}
	if active+1 > capacity {
		return fmt.Errorf("event %d is at capacity: %w", ticket.EventID, apperrors.ErrConflict)
	}
	f.nextID++
	ticket.ID = f.nextID
	ticket.TicketNo = maxNo + 1
	ticket.PaymentStatus = models.PaymentStatusPending
	ticket.Status = models.TicketStatusPending
	cp := *ticket
	f.tickets[ticket.ID] = &cp
	return nil
}

func (f *fakeTicketStore) GetByID(_ context.Context, id int64) (*models.Ticket, error) {
	return f.get(id), nil
}

func (f *fakeTicketStore) GetBySessionID(_ context.Context, sessionID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.SessionID != nil && *t.SessionID == sessionID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTicketStore) CountPaid(_ context.Context, eventID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, t := range f.tickets {
		if t.EventID == eventID && t.PaymentStatus == models.PaymentStatusPaid {
			count++
		}
	}
	return count, nil
}

func (f *fakeTicketStore) SetSessionID(_ context.Context, id int64, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %d: %w", id, apperrors.ErrNotFound)
	}
	t.SessionID = &sessionID
	return nil
}

func (f *fakeTicketStore) SetOwner(_ context.Context, id int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %d: %w", id, apperrors.ErrNotFound)
	}
	if t.UserID == nil {
		t.UserID = &userID
	}
	return nil
}

func (f *fakeTicketStore) TransitionPayment(_ context.Context, id int64, fromAllowed []string, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return false, nil
	}
	if !contains(fromAllowed, t.PaymentStatus) {
		return false, nil
	}
	t.PaymentStatus = to
	return true, nil
}

func (f *fakeTicketStore) TransitionLifecycle(_ context.Context, id int64, fromAllowed []string, to string, qrToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return false, nil
	}
	if !contains(fromAllowed, t.Status) {
		return false, nil
	}
	t.Status = to
	if t.QRToken == nil && qrToken != "" {
		t.QRToken = &qrToken
	}
	return true, nil
}

func (f *fakeTicketStore) SetProcessorFee(_ context.Context, id int64, fee decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %d: %w", id, apperrors.ErrNotFound)
	}
	if !t.ProcessorFee.Valid {
		t.ProcessorFee = decimal.NewNullDecimal(fee)
	}
	return nil
}

func (f *fakeTicketStore) ListPaid(_ context.Context, eventID int64) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.EventID == eventID && t.PaymentStatus == models.PaymentStatusPaid {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTicketStore) ListStale(_ context.Context, cutoff time.Time) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.Status != models.TicketStatusPending && t.Status != models.TicketStatusApproved {
			continue
		}
		f.events.mu.Lock()
		e, ok := f.events.events[t.EventID]
		f.events.mu.Unlock()
		if ok && e.EndsAt.Before(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]*models.User{}}
}

func (f *fakeUserStore) add(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		f.nextID++
		u.ID = f.nextID
	} else if u.ID > f.nextID {
		f.nextID = u.ID
	}
	f.users[u.ID] = u
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) CreateGuest(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	f.nextID++
	u := &models.User{ID: f.nextID, Email: email, IsGuest: true, CreatedAt: time.Now()}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakePaymentStore struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]*models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: map[int64]*models.Payment{}}
}

func (f *fakePaymentStore) Create(_ context.Context, p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePaymentStore) TransitionByTicket(_ context.Context, ticketID int64, fromAllowed []string, to string, transactionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.TicketID != ticketID || !contains(fromAllowed, p.Status) {
			continue
		}
		p.Status = to
		if transactionID != "" {
			p.TransactionID = &transactionID
		}
		return true, nil
	}
	return false, nil
}

func (f *fakePaymentStore) byTicket(ticketID int64) *models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.TicketID == ticketID {
			cp := *p
			return &cp
		}
	}
	return nil
}

type fakePayoutStore struct {
	mu      sync.Mutex
	nextID  int64
	payouts map[int64]*models.Payout
}

func newFakePayoutStore() *fakePayoutStore {
	return &fakePayoutStore{payouts: map[int64]*models.Payout{}}
}

func (f *fakePayoutStore) Create(_ context.Context, p *models.Payout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.payouts[p.ID] = &cp
	return nil
}

func (f *fakePayoutStore) TransitionByProcessorID(_ context.Context, processorPayoutID string, fromAllowed []string, to string, paidAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payouts {
		if p.ProcessorPayoutID == nil || *p.ProcessorPayoutID != processorPayoutID {
			continue
		}
		if !contains(fromAllowed, p.Status) {
			return false, nil
		}
		p.Status = to
		if paidAt != nil {
			p.PaidAt = paidAt
		}
		return true, nil
	}
	return false, nil
}

func (f *fakePayoutStore) byEvent(eventID int64) *models.Payout {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payouts {
		if p.EventID == eventID {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (f *fakePayoutStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payouts)
}

type processorCall struct {
	name        string
	amount      decimal.Decimal
	destination string
	metadata    map[string]string
}

type fakeProcessor struct {
	mu           sync.Mutex
	sessionCalls []processorCall
	payoutCalls  []processorCall
	sessionErr   error
	payoutErr    error
}

func (f *fakeProcessor) Currency() string { return "SLE" }

func (f *fakeProcessor) CreateCheckoutSession(name string, amount decimal.Decimal, metadata map[string]string) (*external.CheckoutSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.sessionCalls = append(f.sessionCalls, processorCall{name: name, amount: amount, metadata: metadata})
	n := len(f.sessionCalls)
	return &external.CheckoutSessionResponse{
		SessionID:   fmt.Sprintf("cs_%d", n),
		RedirectURL: fmt.Sprintf("https://pay.example.test/cs_%d", n),
	}, nil
}

func (f *fakeProcessor) CreatePayout(amount decimal.Decimal, destination string, metadata map[string]string) (*external.PayoutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payoutErr != nil {
		return nil, f.payoutErr
	}
	f.payoutCalls = append(f.payoutCalls, processorCall{amount: amount, destination: destination, metadata: metadata})
	return &external.PayoutResponse{
		PayoutID: fmt.Sprintf("po_%d", len(f.payoutCalls)),
		Status:   "processing",
	}, nil
}

type sentMail struct {
	to         string
	eventTitle string
	qrToken    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) SendTicketConfirmation(to, eventTitle, qrToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to: to, eventTitle: eventTitle, qrToken: qrToken})
	return nil
}

type publishedEvent struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{subject: subject, data: data})
	return nil
}

func (f *fakePublisher) bySubject(subject string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.published {
		if e.subject == subject {
			out = append(out, e)
		}
	}
	return out
}
