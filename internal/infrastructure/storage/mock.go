package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eshaffer321/receipt-ledger/internal/domain/normalizer"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
// WithTx works on a copy of the state and only publishes it when fn
// succeeds, so rollback behaves like the SQLite implementation.
type MockRepository struct {
	state *mockState

	// Hooks for test assertions
	WithTxCalled      int
	Commits           int
	Rollbacks         int
	InsertEntryCalls  int
	LastInsertedEntry *LedgerEntry

	// Error injection for testing error paths
	WithTxErr           error
	InsertEntryErr      error
	InsertEntryErrAfter int // fail only after this many successful inserts
	UpsertReviewItemErr error
	StartMatchRunErr    error
	FinishMatchRunErr   error
	CurrentMatchesErr   error
	ListLedgerErr       error
	GetStatsErr         error
	ListReviewItemsErr  error
	ListMatchRunsErr    error
	GetMatchRunErr      error
	SchemaVersionErr    error

	// Schema is what SchemaVersion reports; NewMockRepository sets it to the
	// version of the last embedded migration.
	Schema int64
}

type mockState struct {
	accounts    map[string]Account
	vendors     []Vendor
	locations   []Location
	entries     []LedgerEntry
	review      map[string]ReviewItem
	runs        map[string]MatchRun
	nextEntryID int64
}

func (s *mockState) clone() *mockState {
	c := &mockState{
		accounts:    make(map[string]Account, len(s.accounts)),
		vendors:     append([]Vendor(nil), s.vendors...),
		locations:   append([]Location(nil), s.locations...),
		entries:     append([]LedgerEntry(nil), s.entries...),
		review:      make(map[string]ReviewItem, len(s.review)),
		runs:        make(map[string]MatchRun, len(s.runs)),
		nextEntryID: s.nextEntryID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.review {
		c.review[k] = v
	}
	for k, v := range s.runs {
		c.runs[k] = v
	}
	return c
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		Schema: 2,
		state: &mockState{
			accounts:    make(map[string]Account),
			review:      make(map[string]ReviewItem),
			runs:        make(map[string]MatchRun),
			nextEntryID: 1,
		},
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
// SchemaVersion reports m.Schema
func (m *MockRepository) SchemaVersion(ctx context.Context) (int64, error) {
	if m.SchemaVersionErr != nil {
		return 0, m.SchemaVersionErr
	}
	return m.Schema, nil
}

func (m *MockRepository) Close() error {
	return nil
}

// WithTx runs fn against a copy of the state
func (m *MockRepository) WithTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	m.WithTxCalled++
	if m.WithTxErr != nil {
		return m.WithTxErr
	}

	work := &mockTx{repo: m, state: m.state.clone()}
	if err := fn(work); err != nil {
		m.Rollbacks++
		return err
	}
	if err := ctx.Err(); err != nil {
		m.Rollbacks++
		return err
	}

	m.state = work.state
	m.Commits++
	return nil
}

// AddEntry seeds a ledger entry
func (m *MockRepository) AddEntry(entry LedgerEntry) {
	if entry.ID == 0 {
		entry.ID = m.state.nextEntryID
	}
	if entry.ID >= m.state.nextEntryID {
		m.state.nextEntryID = entry.ID + 1
	}
	m.state.entries = append(m.state.entries, entry)
}

// AddAccount seeds an account
func (m *MockRepository) AddAccount(account Account) {
	m.state.accounts[account.ID] = account
}

// AddReviewItem seeds a review item
func (m *MockRepository) AddReviewItem(item ReviewItem) {
	m.state.review[reviewKey(item.Kind, item.RecordID)] = item
}

// AddMatchRun seeds a match run
func (m *MockRepository) AddMatchRun(run MatchRun) {
	m.state.runs[run.ID] = run
}

// Entries returns every stored entry, current and superseded
func (m *MockRepository) Entries() []LedgerEntry {
	return append([]LedgerEntry(nil), m.state.entries...)
}

// CurrentMatches returns every current MATCHED entry
func (m *MockRepository) CurrentMatches(ctx context.Context) ([]LedgerEntry, error) {
	if m.CurrentMatchesErr != nil {
		return nil, m.CurrentMatchesErr
	}
	out := make([]LedgerEntry, 0)
	for _, e := range m.state.entries {
		if e.IsCurrent() && e.Status == EntryMatched {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

// ListLedger returns current entries matching the given filters with pagination
func (m *MockRepository) ListLedger(ctx context.Context, filters LedgerFilters) (*LedgerListResult, error) {
	if m.ListLedgerErr != nil {
		return nil, m.ListLedgerErr
	}

	var matching []LedgerEntry
	for _, e := range m.state.entries {
		if !e.IsCurrent() {
			continue
		}
		if filters.AccountID != "" && e.AccountID != filters.AccountID {
			continue
		}
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		if filters.From != "" && e.PostedDate < filters.From {
			continue
		}
		if filters.To != "" && e.PostedDate > filters.To {
			continue
		}
		if filters.Vendor != "" && m.vendorToken(e) != normalizer.VendorToken(filters.Vendor) {
			continue
		}
		matching = append(matching, e)
	}
	sort.Slice(matching, func(i, j int) bool {
		if matching[i].PostedDate != matching[j].PostedDate {
			return matching[i].PostedDate > matching[j].PostedDate
		}
		return matching[i].TransactionID < matching[j].TransactionID
	})

	// Apply defaults
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	// Apply pagination
	total := len(matching)
	start := min(filters.Offset, total)
	end := min(start+limit, total)

	return &LedgerListResult{
		Entries:    append(make([]LedgerEntry, 0), matching[start:end]...),
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}, nil
}

// vendorToken mirrors the vendors.token join; seeded entries without a
// vendor row fall back to their vendor name.
func (m *MockRepository) vendorToken(e LedgerEntry) string {
	for _, v := range m.state.vendors {
		if v.ID == e.VendorID {
			return v.Token
		}
	}
	if e.VendorName == "" {
		return ""
	}
	return normalizer.VendorToken(e.VendorName)
}

// GetLedgerHistory returns every version of a transaction's entry
func (m *MockRepository) GetLedgerHistory(ctx context.Context, transactionID string) ([]LedgerEntry, error) {
	out := make([]LedgerEntry, 0)
	for _, e := range m.state.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// ListAccounts returns known accounts ordered by id
func (m *MockRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(m.state.accounts))
	for _, a := range m.state.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetStats returns mock statistics
func (m *MockRepository) GetStats(ctx context.Context) (*Stats, error) {
	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}

	stats := &Stats{
		ReviewByStatus: make(map[string]int),
		AccountStats:   make(map[string]AccountStats),
	}
	for _, e := range m.state.entries {
		if !e.IsCurrent() {
			continue
		}
		stats.TransactionCount++
		as := stats.AccountStats[e.AccountID]
		as.Transactions++
		if e.Status == EntryMatched {
			stats.MatchedCount++
			as.Matched++
		} else {
			stats.UnmatchedCount++
		}
		if e.Amount < 0 {
			as.TotalSpend += -e.Amount
		}
		stats.AccountStats[e.AccountID] = as
	}
	if stats.TransactionCount > 0 {
		stats.MatchRate = float64(stats.MatchedCount) / float64(stats.TransactionCount)
	}

	for _, it := range m.state.review {
		stats.ReviewByStatus[it.Status]++
		if it.Status != ReviewResolved {
			stats.OpenReviewItems++
		}
	}
	for _, r := range m.state.runs {
		if r.Status != RunCommitted {
			continue
		}
		stats.MatchRunCount++
		if stats.LastRunAt == nil || r.StartedAt.After(*stats.LastRunAt) {
			at := r.StartedAt
			stats.LastRunAt = &at
		}
	}
	return stats, nil
}

// ListReviewItems returns review items filtered like the SQLite implementation
func (m *MockRepository) ListReviewItems(ctx context.Context, filters ReviewFilters) ([]ReviewItem, error) {
	if m.ListReviewItemsErr != nil {
		return nil, m.ListReviewItemsErr
	}

	out := make([]ReviewItem, 0)
	for _, it := range m.state.review {
		switch filters.Status {
		case "":
			if it.Status == ReviewResolved {
				continue
			}
		case "ALL":
		default:
			if it.Status != filters.Status {
				continue
			}
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return reviewKey(out[i].Kind, out[i].RecordID) < reviewKey(out[j].Kind, out[j].RecordID)
	})

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListMatchRuns returns recent runs, newest first
func (m *MockRepository) ListMatchRuns(ctx context.Context, limit int) ([]MatchRun, error) {
	if m.ListMatchRunsErr != nil {
		return nil, m.ListMatchRunsErr
	}
	out := make([]MatchRun, 0, len(m.state.runs))
	for _, r := range m.state.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetMatchRun retrieves a run by id
func (m *MockRepository) GetMatchRun(ctx context.Context, runID string) (*MatchRun, error) {
	if m.GetMatchRunErr != nil {
		return nil, m.GetMatchRunErr
	}
	r, ok := m.state.runs[runID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func reviewKey(kind, recordID string) string {
	return kind + "/" + recordID
}

// mockTx is the LedgerTx handed to WithTx callbacks
type mockTx struct {
	repo  *MockRepository
	state *mockState
}

func (t *mockTx) EnsureAccount(ctx context.Context, account Account) error {
	existing, ok := t.state.accounts[account.ID]
	if !ok {
		if account.CreatedAt.IsZero() {
			account.CreatedAt = time.Now().UTC()
		}
		t.state.accounts[account.ID] = account
		return nil
	}
	if account.Label != "" {
		existing.Label = account.Label
	}
	if account.CardSuffix != "" {
		existing.CardSuffix = account.CardSuffix
	}
	t.state.accounts[account.ID] = existing
	return nil
}

func (t *mockTx) UpsertVendor(ctx context.Context, name string) (int64, error) {
	for _, v := range t.state.vendors {
		if v.Name == name {
			return v.ID, nil
		}
	}
	v := Vendor{ID: int64(len(t.state.vendors) + 1), Name: name, Token: normalizer.VendorToken(name)}
	t.state.vendors = append(t.state.vendors, v)
	return v.ID, nil
}

func (t *mockTx) UpsertLocation(ctx context.Context, vendorID int64, address string) (int64, error) {
	for _, l := range t.state.locations {
		if l.VendorID == vendorID && l.Address == address {
			return l.ID, nil
		}
	}
	l := Location{ID: int64(len(t.state.locations) + 1), VendorID: vendorID, Address: address}
	t.state.locations = append(t.state.locations, l)
	return l.ID, nil
}

func (t *mockTx) CurrentEntry(ctx context.Context, transactionID string) (*LedgerEntry, error) {
	for i := range t.state.entries {
		e := t.state.entries[i]
		if e.TransactionID == transactionID && e.IsCurrent() {
			return &e, nil
		}
	}
	return nil, nil
}

func (t *mockTx) CurrentEntryForReceipt(ctx context.Context, receiptID string) (*LedgerEntry, error) {
	for i := range t.state.entries {
		e := t.state.entries[i]
		if e.ReceiptID == receiptID && e.IsCurrent() {
			return &e, nil
		}
	}
	return nil, nil
}

func (t *mockTx) SupersedeEntry(ctx context.Context, entryID int64, at time.Time) error {
	for i := range t.state.entries {
		if t.state.entries[i].ID == entryID && t.state.entries[i].IsCurrent() {
			at := at.UTC()
			t.state.entries[i].SupersededAt = &at
		}
	}
	return nil
}

func (t *mockTx) InsertEntry(ctx context.Context, entry *LedgerEntry) (int64, error) {
	t.repo.InsertEntryCalls++
	if t.repo.InsertEntryErr != nil && t.repo.InsertEntryCalls > t.repo.InsertEntryErrAfter {
		return 0, t.repo.InsertEntryErr
	}

	// Mirror the partial unique indexes.
	maxVersion := 0
	for _, e := range t.state.entries {
		if e.TransactionID == entry.TransactionID {
			maxVersion = max(maxVersion, e.Version)
			if e.IsCurrent() {
				return 0, fmt.Errorf("UNIQUE constraint failed: current entry for transaction %s", entry.TransactionID)
			}
		}
		if entry.ReceiptID != "" && e.ReceiptID == entry.ReceiptID && e.IsCurrent() {
			return 0, fmt.Errorf("UNIQUE constraint failed: current entry for receipt %s", entry.ReceiptID)
		}
	}
	if _, ok := t.state.runs[entry.MatchRunID]; !ok {
		return 0, fmt.Errorf("FOREIGN KEY constraint failed: match run %s", entry.MatchRunID)
	}

	if entry.Version == 0 {
		entry.Version = maxVersion + 1
	}
	entry.ID = t.state.nextEntryID
	t.state.nextEntryID++
	for _, v := range t.state.vendors {
		if v.ID == entry.VendorID {
			entry.VendorName = v.Name
		}
	}
	for _, l := range t.state.locations {
		if l.ID == entry.LocationID {
			entry.Address = l.Address
		}
	}

	copied := *entry
	t.state.entries = append(t.state.entries, copied)
	t.repo.LastInsertedEntry = &copied
	return entry.ID, nil
}

func (t *mockTx) UpsertReviewItem(ctx context.Context, item *ReviewItem) error {
	if t.repo.UpsertReviewItemErr != nil {
		return t.repo.UpsertReviewItemErr
	}
	t.state.review[reviewKey(item.Kind, item.RecordID)] = *item
	return nil
}

func (t *mockTx) ResolveReviewItem(ctx context.Context, kind, recordID, runID string, at time.Time) (bool, error) {
	key := reviewKey(kind, recordID)
	it, ok := t.state.review[key]
	if !ok || it.Status == ReviewResolved {
		return false, nil
	}
	it.Status = ReviewResolved
	it.MatchRunID = runID
	it.UpdatedAt = at.UTC()
	t.state.review[key] = it
	return true, nil
}

func (t *mockTx) MatchRun(ctx context.Context, id string) (*MatchRun, error) {
	r, ok := t.state.runs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (t *mockTx) StartMatchRun(ctx context.Context, run *MatchRun) error {
	if t.repo.StartMatchRunErr != nil {
		return t.repo.StartMatchRunErr
	}
	if _, exists := t.state.runs[run.ID]; exists {
		return fmt.Errorf("UNIQUE constraint failed: match_runs.id %s", run.ID)
	}
	copied := *run
	copied.Status = RunCommitting
	t.state.runs[run.ID] = copied
	return nil
}

func (t *mockTx) FinishMatchRun(ctx context.Context, run *MatchRun) error {
	if t.repo.FinishMatchRunErr != nil {
		return t.repo.FinishMatchRunErr
	}
	copied := *run
	copied.Status = RunCommitted
	t.state.runs[run.ID] = copied
	return nil
}
