package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/classify"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

type fakeTicketStore struct {
	mu      sync.Mutex
	seq     int64
	tickets map[string]domain.Ticket
	order   []string
	failAll bool
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: map[string]domain.Ticket{}}
}

func (s *fakeTicketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("store down")
	}
	s.seq++
	ticket.TicketCode = domain.FormatTicketCode(2026, s.seq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	s.tickets[ticket.TicketCode] = *ticket
	s.order = append(s.order, ticket.TicketCode)
	return nil
}

func (s *fakeTicketStore) Update(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[ticket.TicketCode]
	if !ok {
		return pgx.ErrNoRows
	}
	// earliest resolution timestamp wins, matching the store's COALESCE
	if stored.ResolvedAt != nil {
		ticket.ResolvedAt = stored.ResolvedAt
	}
	ticket.UpdatedAt = time.Now()
	s.tickets[ticket.TicketCode] = *ticket
	return nil
}

func (s *fakeTicketStore) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (s *fakeTicketStore) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Ticket
	for i := len(s.order) - 1; i >= 0; i-- {
		ticket := s.tickets[s.order[i]]
		if filter.StudentID != nil && ticket.StudentID != *filter.StudentID {
			continue
		}
		out = append(out, ticket)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserStore(users ...domain.User) *fakeUserStore {
	s := &fakeUserStore{users: map[string]domain.User{}}
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return s
}

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.CreatedAt = time.Now()
	s.users[user.UserID] = *user
	return nil
}

func (s *fakeUserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.UserID]; !ok {
		return pgx.ErrNoRows
	}
	s.users[user.UserID] = *user
	return nil
}

func (s *fakeUserStore) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeUserStore) TouchLastLogin(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastLoginAt = time.Now()
	s.users[userID] = user
	return nil
}

type fakeHistoryStore struct {
	mu      sync.Mutex
	entries []domain.StatusHistory
}

func (s *fakeHistoryStore) Create(ctx context.Context, entry *domain.StatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = int64(len(s.entries) + 1)
	entry.ChangedAt = time.Now()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeHistoryStore) ListByTicket(ctx context.Context, ticketCode string) ([]domain.StatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StatusHistory
	for _, entry := range s.entries {
		if entry.TicketCode == ticketCode {
			out = append(out, entry)
		}
	}
	return out, nil
}

type classifierFunc func(ctx context.Context, input classify.Input) (domain.Classification, error)

func (f classifierFunc) Classify(ctx context.Context, input classify.Input) (domain.Classification, error) {
	return f(ctx, input)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var testStudent = domain.User{
	UserID:      "user_1",
	Email:       "ravi@campus.example.com",
	DisplayName: "Ravi Kumar",
	Role:        domain.RoleStudent,
	IsActive:    true,
}

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTicketStore
	history    *fakeHistoryStore
	dispatcher *recordingDispatcher
	now        time.Time
}

func newTicketFixture(t *testing.T, mutate func(*TicketDependencies)) *ticketFixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tickets := newFakeTicketStore()
	history := &fakeHistoryStore{}
	dispatcher := &recordingDispatcher{}

	deps := TicketDependencies{
		TicketRepo:  tickets,
		UserRepo:    newFakeUserStore(testStudent),
		HistoryRepo: history,
		Classifier: classifierFunc(func(ctx context.Context, input classify.Input) (domain.Classification, error) {
			return domain.Classification{
				Category:     "it",
				SubCategory:  "wifi",
				Department:   "it",
				Urgency:      domain.UrgencyHigh,
				UrgencyScore: 0.8,
				Summary:      "WiFi outage in hostel block",
				Keywords:     []string{"wifi"},
				Sentiment:    "negative",
				Confidence:   0.9,
			}, nil
		}),
		Dispatcher: dispatcher,
		Now:        func() time.Time { return now },
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &ticketFixture{
		svc:        NewTicketService(deps),
		tickets:    tickets,
		history:    history,
		dispatcher: dispatcher,
		now:        now,
	}
}

func TestCreateTicketRoutesClassifiedGrievance(t *testing.T) {
	fx := newTicketFixture(t, nil)

	result, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "The WiFi in hostel block C has been down for two days",
		Block:     "C",
		StudentID: testStudent.UserID,
	})
	require.NoError(t, err)

	ticket := result.Ticket
	assert.Equal(t, "GRV-2026-00001", ticket.TicketCode)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "it", ticket.AssignedDepartment)
	assert.Equal(t, 1, ticket.Priority)
	assert.Equal(t, testStudent.DisplayName, ticket.StudentName)
	assert.False(t, result.UsedFallback)

	require.NotNil(t, ticket.ExpectedResolutionAt)
	assert.Equal(t, fx.now.Add(24*time.Hour), *ticket.ExpectedResolutionAt)

	assert.Contains(t, result.Acknowledgement, ticket.TicketCode)

	created := fx.dispatcher.byType(events.EventTicketCreated)
	require.Len(t, created, 1)
	payload, ok := created[0].Payload.(events.TicketCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.UrgencyHigh, payload.Urgency)
	assert.False(t, payload.UsedFallback)
}

func TestCreateTicketFallsBackWhenClassifierFails(t *testing.T) {
	fx := newTicketFixture(t, func(deps *TicketDependencies) {
		deps.Classifier = classifierFunc(func(ctx context.Context, input classify.Input) (domain.Classification, error) {
			return domain.Classification{}, errors.New("model unavailable")
		})
	})

	result, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "Mess food quality has dropped badly this month",
		StudentID: testStudent.UserID,
	})
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	assert.Equal(t, "general", result.Classification.Category)
	assert.Equal(t, "other", result.Classification.SubCategory)
	assert.Equal(t, "admin", result.Classification.Department)
	assert.Equal(t, domain.UrgencyMedium, result.Classification.Urgency)
	assert.Equal(t, "admin", result.Ticket.AssignedDepartment)
	assert.Equal(t, 2, result.Ticket.Priority)
	require.NotNil(t, result.Ticket.ExpectedResolutionAt)
	assert.Equal(t, fx.now.Add(72*time.Hour), *result.Ticket.ExpectedResolutionAt)
}

func TestCreateTicketTimeoutFallsBack(t *testing.T) {
	fx := newTicketFixture(t, func(deps *TicketDependencies) {
		deps.ClassifyTimeout = 10 * time.Millisecond
		deps.Classifier = classifierFunc(func(ctx context.Context, input classify.Input) (domain.Classification, error) {
			<-ctx.Done()
			return domain.Classification{}, ctx.Err()
		})
	})

	result, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "Streetlight near gate 2 has not worked for a week",
		StudentID: testStudent.UserID,
	})
	require.NoError(t, err)
	assert.True(t, result.UsedFallback)
}

func TestCreateTicketValidation(t *testing.T) {
	fx := newTicketFixture(t, nil)

	_, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "   ",
		StudentID: testStudent.UserID,
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "legit grievance",
		StudentID: "user_nobody",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateTicketStoreFailureLeavesNothingBehind(t *testing.T) {
	fx := newTicketFixture(t, nil)
	fx.tickets.failAll = true

	_, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "Water cooler on floor 3 leaks",
		StudentID: testStudent.UserID,
	})
	require.Error(t, err)
	assert.Equal(t, "PERSISTENCE_FAILED", apperrors.ToDomainError(err).Code)
	assert.Empty(t, fx.dispatcher.byType(events.EventTicketCreated))
}

func TestCreateTicketAnonymous(t *testing.T) {
	fx := newTicketFixture(t, nil)

	result, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:        "Warden misbehaves with students",
		IsAnonymous: true,
		StudentID:   testStudent.UserID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AnonymousName, result.Ticket.StudentName)
	assert.True(t, result.Ticket.IsAnonymous)
	// real identity stays on the row for audit
	assert.Equal(t, testStudent.UserID, result.Ticket.StudentID)
	assert.Equal(t, testStudent.Email, result.Ticket.StudentEmail)
}

func TestConcurrentCreatesMintUniqueCodes(t *testing.T) {
	fx := newTicketFixture(t, nil)

	const n = 25
	codes := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
				Text:      "Parallel grievance",
				StudentID: testStudent.UserID,
			})
			if err != nil {
				t.Error(err)
				return
			}
			codes <- result.Ticket.TicketCode
		}()
	}
	wg.Wait()
	close(codes)

	seen := map[string]bool{}
	var all []string
	for code := range codes {
		assert.False(t, seen[code], "duplicate ticket code %s", code)
		seen[code] = true
		all = append(all, code)
	}
	require.Len(t, all, n)
	sort.Strings(all)
	assert.Equal(t, "GRV-2026-00001", all[0])
	assert.Equal(t, "GRV-2026-00025", all[n-1])
}

func TestUpdateStatusStampsResolvedAtOnce(t *testing.T) {
	fx := newTicketFixture(t, nil)
	created, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "AC broken in library",
		StudentID: testStudent.UserID,
	})
	require.NoError(t, err)
	code := created.Ticket.TicketCode

	resolved, err := fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusResolved, "admin_1", "fixed compressor")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	firstResolvedAt := *resolved.ResolvedAt
	assert.Equal(t, fx.now, firstResolvedAt)

	// reopen does not clear the stamp
	reopened, err := fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusReopened, "admin_1", "")
	require.NoError(t, err)
	require.NotNil(t, reopened.ResolvedAt)
	assert.Equal(t, firstResolvedAt, *reopened.ResolvedAt)

	// resolving again keeps the original timestamp
	again, err := fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusResolved, "admin_1", "")
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedAt)
	assert.Equal(t, firstResolvedAt, *again.ResolvedAt)

	resolvedEvents := fx.dispatcher.byType(events.EventTicketResolved)
	assert.Len(t, resolvedEvents, 2)
}

func TestUpdateStatusAppendsHistory(t *testing.T) {
	fx := newTicketFixture(t, nil)
	created, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "Broken window latch",
		StudentID: testStudent.UserID,
	})
	require.NoError(t, err)
	code := created.Ticket.TicketCode

	_, err = fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusInProgress, "admin_1", "assigned to electrician")
	require.NoError(t, err)
	// same-status update is allowed and still audited
	_, err = fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusInProgress, "admin_1", "still waiting on parts")
	require.NoError(t, err)

	entries, err := fx.svc.ListHistory(context.Background(), code)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.TicketStatusOpen, entries[0].PreviousStatus)
	assert.Equal(t, domain.TicketStatusInProgress, entries[0].NewStatus)
	assert.Equal(t, domain.TicketStatusInProgress, entries[1].PreviousStatus)
	assert.Equal(t, domain.TicketStatusInProgress, entries[1].NewStatus)
	assert.Equal(t, "still waiting on parts", entries[1].Notes)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	fx := newTicketFixture(t, nil)

	_, err := fx.svc.UpdateStatus(context.Background(), "GRV-2026-00001", domain.TicketStatus("finished"), "admin_1", "")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = fx.svc.UpdateStatus(context.Background(), "GRV-2026-99999", domain.TicketStatusResolved, "admin_1", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateStatusStrictTransitions(t *testing.T) {
	fx := newTicketFixture(t, func(deps *TicketDependencies) {
		deps.StrictTransitions = true
	})
	created, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
		Text:      "Bus route 4 skips the north gate stop",
		StudentID: testStudent.UserID,
	})
	require.NoError(t, err)
	code := created.Ticket.TicketCode

	_, err = fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusResolved, "admin_1", "")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusInProgress, "admin_1", "")
	require.NoError(t, err)
	_, err = fx.svc.UpdateStatus(context.Background(), code, domain.TicketStatusResolved, "admin_1", "")
	require.NoError(t, err)
}

func TestListHistoryUnknownTicket(t *testing.T) {
	fx := newTicketFixture(t, nil)
	_, err := fx.svc.ListHistory(context.Background(), "GRV-2026-00404")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListStudentTickets(t *testing.T) {
	other := domain.User{UserID: "user_2", Email: "meera@campus.example.com", DisplayName: "Meera", Role: domain.RoleStudent, IsActive: true}
	fx := newTicketFixture(t, func(deps *TicketDependencies) {
		deps.UserRepo = newFakeUserStore(testStudent, other)
	})

	for _, studentID := range []string{testStudent.UserID, other.UserID, testStudent.UserID} {
		_, err := fx.svc.CreateTicket(context.Background(), TicketCreateInput{
			Text:      "grievance from " + studentID,
			StudentID: studentID,
		})
		require.NoError(t, err)
	}

	mine, err := fx.svc.ListStudentTickets(context.Background(), testStudent.UserID, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, ticket := range mine {
		assert.Equal(t, testStudent.UserID, ticket.StudentID)
	}

	all, err := fx.svc.ListAllTickets(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
