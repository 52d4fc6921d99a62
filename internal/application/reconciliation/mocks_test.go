package reconciliation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}

// ---------------------------------------------------------------------------
// Gateway mocks
// ---------------------------------------------------------------------------

// MockOrderManagementGateway is a mock implementation of OrderManagementGateway
type MockOrderManagementGateway struct {
	mock.Mock
}

func (m *MockOrderManagementGateway) ListInvoices(ctx context.Context, sinceID int64, page int) ([]reconciliation.Invoice, error) {
	args := m.Called(ctx, sinceID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.Invoice), args.Error(1)
}

func (m *MockOrderManagementGateway) ListCreditNotes(ctx context.Context, sinceID int64, page int) ([]reconciliation.CreditNote, error) {
	args := m.Called(ctx, sinceID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.CreditNote), args.Error(1)
}

func (m *MockOrderManagementGateway) ListPickTickets(ctx context.Context, sinceID int64) ([]reconciliation.PickTicket, error) {
	args := m.Called(ctx, sinceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.PickTicket), args.Error(1)
}

func (m *MockOrderManagementGateway) GetInvoice(ctx context.Context, id int64) (*reconciliation.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Invoice), args.Error(1)
}

func (m *MockOrderManagementGateway) GetCreditNote(ctx context.Context, id int64) (*reconciliation.CreditNote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.CreditNote), args.Error(1)
}

func (m *MockOrderManagementGateway) GetPickTicket(ctx context.Context, id int64) (*reconciliation.PickTicket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.PickTicket), args.Error(1)
}

func (m *MockOrderManagementGateway) GetCustomer(ctx context.Context, id int64) (*reconciliation.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Customer), args.Error(1)
}

func (m *MockOrderManagementGateway) GetOrder(ctx context.Context, orderNumber string) (*reconciliation.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Order), args.Error(1)
}

func (m *MockOrderManagementGateway) AddPayment(ctx context.Context, payment reconciliation.PaymentRequest) (int64, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderManagementGateway) SetActiveOrganisation(ctx context.Context, organisationID int64) error {
	args := m.Called(ctx, organisationID)
	return args.Error(0)
}

func (m *MockOrderManagementGateway) Decode(t reconciliation.ObjectType, payload []byte) (reconciliation.RemoteObject, error) {
	args := m.Called(t, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(reconciliation.RemoteObject), args.Error(1)
}

var _ reconciliation.OrderManagementGateway = (*MockOrderManagementGateway)(nil)

// MockAccountingGateway is a mock implementation of AccountingGateway
type MockAccountingGateway struct {
	mock.Mock
}

func (m *MockAccountingGateway) ListLedgerAccounts(ctx context.Context) ([]reconciliation.LedgerAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.LedgerAccount), args.Error(1)
}

func (m *MockAccountingGateway) ListTaxRates(ctx context.Context) ([]reconciliation.TaxRate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.TaxRate), args.Error(1)
}

func (m *MockAccountingGateway) ListRelations(ctx context.Context, filter reconciliation.RelationFilter) ([]reconciliation.Relation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.Relation), args.Error(1)
}

func (m *MockAccountingGateway) CreateRelation(ctx context.Context, relation reconciliation.NewRelation) (*reconciliation.Relation, error) {
	args := m.Called(ctx, relation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Relation), args.Error(1)
}

func (m *MockAccountingGateway) CreateSaleEntry(ctx context.Context, entry reconciliation.SaleEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockAccountingGateway) UpdateSaleEntry(ctx context.Context, id string, entry reconciliation.SaleEntry) error {
	args := m.Called(ctx, id, entry)
	return args.Error(0)
}

func (m *MockAccountingGateway) DeleteSaleEntry(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountingGateway) ListLedgerMutations(ctx context.Context, filter reconciliation.LedgerMutationFilter, since time.Time) ([]reconciliation.LedgerMutation, error) {
	args := m.Called(ctx, filter, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.LedgerMutation), args.Error(1)
}

func (m *MockAccountingGateway) GetLedgerMutation(ctx context.Context, id string) (*reconciliation.LedgerMutation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.LedgerMutation), args.Error(1)
}

var _ reconciliation.AccountingGateway = (*MockAccountingGateway)(nil)

// MockShippingGateway is a mock implementation of ShippingGateway
type MockShippingGateway struct {
	mock.Mock
}

func (m *MockShippingGateway) CreateParcel(ctx context.Context, parcel reconciliation.Parcel) (int64, error) {
	args := m.Called(ctx, parcel)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockShippingGateway) UpdateParcel(ctx context.Context, parcel reconciliation.Parcel) error {
	args := m.Called(ctx, parcel)
	return args.Error(0)
}

func (m *MockShippingGateway) CancelParcel(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockShippingGateway) ListShippingMethods(ctx context.Context) ([]reconciliation.ShippingMethod, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.ShippingMethod), args.Error(1)
}

var _ reconciliation.ShippingGateway = (*MockShippingGateway)(nil)

// ---------------------------------------------------------------------------
// Handler mock
// ---------------------------------------------------------------------------

// MockHandler is a mock implementation of Handler for a numeric-id invoice-like type
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) ObjectType() reconciliation.ObjectType { return reconciliation.ObjectTypeInvoice }

func (m *MockHandler) SourceService() reconciliation.Service {
	return reconciliation.ServiceOrderManagement
}

func (m *MockHandler) TargetService() reconciliation.Service { return reconciliation.ServiceAccounting }

func (m *MockHandler) Prepare(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockHandler) Fetch(ctx context.Context, cursor string, limit *int) ([]reconciliation.RemoteObject, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconciliation.RemoteObject), args.Error(1)
}

func (m *MockHandler) Get(ctx context.Context, id string) (reconciliation.RemoteObject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(reconciliation.RemoteObject), args.Error(1)
}

func (m *MockHandler) Decode(payload []byte) (reconciliation.RemoteObject, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(reconciliation.RemoteObject), args.Error(1)
}

func (m *MockHandler) Create(ctx context.Context, obj reconciliation.RemoteObject) (string, error) {
	args := m.Called(ctx, obj)
	return args.String(0), args.Error(1)
}

func (m *MockHandler) Update(ctx context.Context, obj reconciliation.RemoteObject, targetID string) error {
	args := m.Called(ctx, obj, targetID)
	return args.Error(0)
}

func (m *MockHandler) Delete(ctx context.Context, targetID string) error {
	args := m.Called(ctx, targetID)
	return args.Error(0)
}

func (m *MockHandler) ObjectURL(objectID string) string {
	return "https://orders.example.com/invoices/" + objectID
}

func (m *MockHandler) NextCursor(obj reconciliation.RemoteObject) string {
	return obj.SourceID()
}

var _ Handler = (*MockHandler)(nil)

// ---------------------------------------------------------------------------
// In-memory stores
// ---------------------------------------------------------------------------

type memMappings struct {
	mu sync.Mutex
	m  map[reconciliation.MappingKey]reconciliation.IdentityMapping
}

func newMemMappings() *memMappings {
	return &memMappings{m: make(map[reconciliation.MappingKey]reconciliation.IdentityMapping)}
}

func (s *memMappings) Get(_ context.Context, key reconciliation.MappingKey) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.m[key]
	return m.TargetObjectID, ok, nil
}

func (s *memMappings) List(_ context.Context, filter reconciliation.IdentityMappingFilter) ([]reconciliation.IdentityMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconciliation.IdentityMapping
	for _, m := range s.m {
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceObjectID < out[j].SourceObjectID })
	return out, nil
}

func (s *memMappings) Count(ctx context.Context, filter reconciliation.IdentityMappingFilter) (int64, error) {
	out, _ := s.List(ctx, filter)
	return int64(len(out)), nil
}

func (s *memMappings) Put(_ context.Context, mapping *reconciliation.IdentityMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[mapping.MappingKey]; ok {
		return reconciliation.ErrAlreadyMapped
	}
	s.m[mapping.MappingKey] = *mapping
	return nil
}

func (s *memMappings) Delete(_ context.Context, key reconciliation.MappingKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *memMappings) seed(key reconciliation.MappingKey, targetID string) {
	s.m[key] = reconciliation.IdentityMapping{MappingKey: key, TargetObjectID: targetID}
}

type memAudit struct {
	mu        sync.Mutex
	records   []reconciliation.SynchronizedObjectRecord
	appendErr error
}

func (s *memAudit) Append(_ context.Context, record *reconciliation.SynchronizedObjectRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *memAudit) HasSucceeded(_ context.Context, t reconciliation.ObjectType, objectID string, method reconciliation.Method) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Type == t && r.ObjectID == objectID && r.Method == method && r.Succeeded && r.Outcome != reconciliation.OutcomeSkipped {
			return true, nil
		}
	}
	return false, nil
}

func (s *memAudit) FindByID(_ context.Context, id uuid.UUID) (*reconciliation.SynchronizedObjectRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			r := s.records[i]
			return &r, nil
		}
	}
	return nil, reconciliation.ErrRecordNotFound
}

func (s *memAudit) List(_ context.Context, filter reconciliation.AuditFilter) ([]reconciliation.SynchronizedObjectRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconciliation.SynchronizedObjectRecord
	for _, r := range s.records {
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.ObjectID != "" && r.ObjectID != filter.ObjectID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memAudit) Count(ctx context.Context, filter reconciliation.AuditFilter) (int64, error) {
	out, _ := s.List(ctx, filter)
	return int64(len(out)), nil
}

func (s *memAudit) all() []reconciliation.SynchronizedObjectRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reconciliation.SynchronizedObjectRecord(nil), s.records...)
}

type memSettings struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemSettings(values map[string]string) *memSettings {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &memSettings{m: m}
}

func (s *memSettings) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memSettings) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memSettings) All(_ context.Context) ([]reconciliation.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reconciliation.Setting, 0, len(s.m))
	for k, v := range s.m {
		out = append(out, reconciliation.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (s *memSettings) value(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key]
}

type memRuns struct {
	mu   sync.Mutex
	runs []reconciliation.SyncRun
}

func (s *memRuns) Save(_ context.Context, run *reconciliation.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *memRuns) FindByID(_ context.Context, id uuid.UUID) (*reconciliation.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == id {
			r := s.runs[i]
			return &r, nil
		}
	}
	return nil, reconciliation.ErrRunNotFound
}

func (s *memRuns) ListRecent(_ context.Context, t reconciliation.ObjectType, limit int) ([]reconciliation.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconciliation.SyncRun
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if t == "" || s.runs[i].Type == t {
			out = append(out, s.runs[i])
		}
	}
	return out, nil
}

// fakeClaims is a ClaimStore whose keys can be pre-claimed
type fakeClaims struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released []string
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{held: make(map[string]bool)}
}

func (c *fakeClaims) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

func (c *fakeClaims) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	c.released = append(c.released, key)
	return nil
}

func (c *fakeClaims) Close() error { return nil }

type fakeArchive struct {
	stored map[string][]byte
	err    error
}

func (a *fakeArchive) Store(_ context.Context, key string, payload []byte) error {
	if a.err != nil {
		return a.err
	}
	if a.stored == nil {
		a.stored = make(map[string][]byte)
	}
	a.stored[key] = payload
	return nil
}

var errRemoteDown = errors.New("remote down")
