package discount

import (
	"context"

	"github.com/atelier-commerce/discount-engine/internal/domain/catalog"
)

// mockCodeRepo is an in-test Repository double. The stored code is matched
// by (tenantID, code) for lookups so normalization can be asserted.
type mockCodeRepo struct {
	code      *Code
	getErr    error
	createErr error

	created     *Code
	deleteFound bool
	deleted     []string
	incremented []string
	incErr      error
	page        *ListPage
	lastFilter  ListFilter
}

func (m *mockCodeRepo) Create(_ context.Context, c *Code) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = c
	return nil
}

func (m *mockCodeRepo) GetByCode(_ context.Context, _, code string) (*Code, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.code == nil || m.code.Code != code {
		return nil, nil
	}
	return m.code, nil
}

func (m *mockCodeRepo) GetByID(_ context.Context, _, id string) (*Code, error) {
	if m.code == nil || m.code.ID != id {
		return nil, nil
	}
	return m.code, nil
}

func (m *mockCodeRepo) List(_ context.Context, _ string, filter ListFilter) (*ListPage, error) {
	m.lastFilter = filter
	if m.page != nil {
		return m.page, nil
	}
	return &ListPage{}, nil
}

func (m *mockCodeRepo) Delete(_ context.Context, _, id string) (bool, error) {
	m.deleted = append(m.deleted, id)
	return m.deleteFound, nil
}

func (m *mockCodeRepo) IncrementUsage(_ context.Context, _, id string) error {
	if m.incErr != nil {
		return m.incErr
	}
	m.incremented = append(m.incremented, id)
	return nil
}

// mockLedger is an in-test LedgerRepository double keyed by customer email.
type mockLedger struct {
	entries   map[string]*LedgerEntry
	getErr    error
	recordErr error
	recorded  []string
}

func (m *mockLedger) Get(_ context.Context, _, _, customerEmail string) (*LedgerEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries[customerEmail], nil
}

func (m *mockLedger) RecordUse(_ context.Context, _, _, customerEmail string) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.recorded = append(m.recorded, customerEmail)
	return nil
}

// mockCatalog is an in-test catalog.Repository double.
type mockCatalog struct {
	pieces []catalog.Piece
	err    error
}

func (m *mockCatalog) GetByIDs(_ context.Context, _ string, ids []string) ([]catalog.Piece, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []catalog.Piece
	for _, p := range m.pieces {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) Upsert(_ context.Context, _ *catalog.Piece) error {
	return nil
}
