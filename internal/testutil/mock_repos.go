package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

// MockTicketRepo is a thread-safe in-memory TicketRepo.
type MockTicketRepo struct {
	mu      sync.Mutex
	Tickets map[string]*models.Ticket

	AppendErr error
	ClearErr  error

	AppendCalls int
	ClearCalls  int
}

func NewMockTicketRepo() *MockTicketRepo {
	return &MockTicketRepo{Tickets: make(map[string]*models.Ticket)}
}

func (m *MockTicketRepo) Insert(_ context.Context, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.Tickets[t.ID] = &cp
	return nil
}

func (m *MockTicketRepo) GetByID(_ context.Context, id string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tickets[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *t
	cp.PendingMessageIDs = append(cp.PendingMessageIDs[:0:0], t.PendingMessageIDs...)
	return &cp, nil
}

func (m *MockTicketRepo) Update(_ context.Context, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tickets[t.ID]; !ok {
		return utils.ErrNotFound
	}
	cp := *t
	m.Tickets[t.ID] = &cp
	return nil
}

func (m *MockTicketRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tickets[id]; !ok {
		return utils.ErrNotFound
	}
	delete(m.Tickets, id)
	return nil
}

func (m *MockTicketRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]models.Ticket, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Ticket
	for _, t := range m.Tickets {
		if t.TenantID == tenantID {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

func (m *MockTicketRepo) ActiveBySession(_ context.Context, sessionID string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tickets {
		if t.SessionID == sessionID && !t.IsClosed {
			cp := *t
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (m *MockTicketRepo) AppendPending(_ context.Context, ticketID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendErr != nil {
		return m.AppendErr
	}
	t, ok := m.Tickets[ticketID]
	if !ok {
		return utils.ErrNotFound
	}
	t.PendingMessageIDs = append(t.PendingMessageIDs, messageID)
	return nil
}

func (m *MockTicketRepo) ClearPending(_ context.Context, ticketID string, repliedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	t, ok := m.Tickets[ticketID]
	if !ok {
		return utils.ErrNotFound
	}
	t.PendingMessageIDs = nil
	at := repliedAt
	t.LastOperatorReplyAt = &at
	return nil
}

// Pending returns a copy of the accumulator for assertions.
func (m *MockTicketRepo) Pending(ticketID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tickets[ticketID]
	if !ok {
		return nil
	}
	return append([]string(nil), t.PendingMessageIDs...)
}

// MockMessageRepo is a thread-safe in-memory MessageRepo.
type MockMessageRepo struct {
	mu       sync.Mutex
	Messages map[string]*models.ChatMessage

	InsertErr   error
	InsertCalls int
}

func NewMockMessageRepo() *MockMessageRepo {
	return &MockMessageRepo{Messages: make(map[string]*models.ChatMessage)}
}

func (m *MockMessageRepo) Insert(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *msg
	m.Messages[msg.ID] = &cp
	return nil
}

func (m *MockMessageRepo) GetByID(_ context.Context, id string) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.Messages[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *MockMessageRepo) GetByIDs(_ context.Context, ids []string) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatMessage
	for _, id := range ids {
		if msg, ok := m.Messages[id]; ok {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *MockMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatMessage
	for _, msg := range m.Messages {
		if msg.TicketID == ticketID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *MockMessageRepo) HasOperatorMessage(_ context.Context, ticketID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if msg.TicketID == ticketID && msg.SenderRole == models.SenderOperator {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockMessageRepo) CountByTicket(_ context.Context, ticketID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.Messages {
		if msg.TicketID == ticketID {
			n++
		}
	}
	return n, nil
}

// MockKnowledgeRepo is an in-memory KnowledgeRepo. NearestByVector returns
// NearestEntries verbatim, so tests control the retrieval result directly.
type MockKnowledgeRepo struct {
	mu      sync.Mutex
	Entries map[string]*models.KnowledgeEntry

	NearestEntries []models.KnowledgeEntry
	NearestErr     error
	NearestCalls   int
	LastNearestK   int
	LastTenantID   string
}

func NewMockKnowledgeRepo() *MockKnowledgeRepo {
	return &MockKnowledgeRepo{Entries: make(map[string]*models.KnowledgeEntry)}
}

func (m *MockKnowledgeRepo) Insert(_ context.Context, e *models.KnowledgeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Entries[e.ID] = &cp
	return nil
}

func (m *MockKnowledgeRepo) Update(_ context.Context, e *models.KnowledgeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Entries[e.ID]; !ok {
		return utils.ErrNotFound
	}
	cp := *e
	m.Entries[e.ID] = &cp
	return nil
}

func (m *MockKnowledgeRepo) GetByID(_ context.Context, id string) (*models.KnowledgeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entries[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockKnowledgeRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Entries[id]; !ok {
		return utils.ErrNotFound
	}
	delete(m.Entries, id)
	return nil
}

func (m *MockKnowledgeRepo) ListByTenant(_ context.Context, tenantID string, limit, offset int) ([]models.KnowledgeEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.KnowledgeEntry
	for _, e := range m.Entries {
		if e.TenantID == tenantID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (m *MockKnowledgeRepo) Search(_ context.Context, tenantID, keyword string, limit, offset int) ([]models.KnowledgeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.KnowledgeEntry
	for _, e := range m.Entries {
		if e.TenantID == tenantID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *MockKnowledgeRepo) NearestByVector(_ context.Context, tenantID string, _ pgvector.Vector, k int) ([]models.KnowledgeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NearestCalls++
	m.LastTenantID = tenantID
	m.LastNearestK = k
	if m.NearestErr != nil {
		return nil, m.NearestErr
	}
	if len(m.NearestEntries) > k {
		return m.NearestEntries[:k], nil
	}
	return m.NearestEntries, nil
}

// MockTenantRepo is an in-memory TenantRepo.
type MockTenantRepo struct {
	mu      sync.Mutex
	Tenants map[string]*models.Tenant
}

func NewMockTenantRepo() *MockTenantRepo {
	return &MockTenantRepo{Tenants: make(map[string]*models.Tenant)}
}

func (m *MockTenantRepo) Insert(_ context.Context, t *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.Tenants[t.ID] = &cp
	return nil
}

func (m *MockTenantRepo) GetByID(_ context.Context, id string) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tenants[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTenantRepo) GetByAPIKey(_ context.Context, apiKey string) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tenants {
		if t.APIKey == apiKey {
			cp := *t
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (m *MockTenantRepo) List(_ context.Context, limit, offset int) ([]models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Tenant
	for _, t := range m.Tenants {
		out = append(out, *t)
	}
	return out, nil
}
