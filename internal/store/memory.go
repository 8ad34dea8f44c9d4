package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu sync.RWMutex

	transactions map[int64]*Transaction
	nextID       int64
	balance      Balance
	now          func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[int64]*Transaction),
		nextID:       1,
		now:          time.Now,
	}
}

// Transaction operations

func (m *MemoryStore) AddTransaction(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	applyDefaults(tx, m.now())
	tx.ID = m.nextID
	m.nextID++

	stored := *tx
	m.transactions[tx.ID] = &stored
	return nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	out := *tx
	return &out, nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	delete(m.transactions, id)
	return nil
}

func (m *MemoryStore) RecentTransactions(ctx context.Context, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return limitTo(m.sortedLocked(), limit), nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, since time.Time) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sinceLocked(since), nil
}

func (m *MemoryStore) FindTransactions(ctx context.Context, q TransactionQuery) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Transaction
	for _, tx := range m.sortedLocked() {
		if matches(tx, q) {
			out = append(out, tx)
		}
	}
	return limitTo(out, q.Limit), nil
}

func (m *MemoryStore) DeleteMostRecent(ctx context.Context) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := m.sortedLocked()
	if len(sorted) == 0 {
		return nil, fmt.Errorf("most recent transaction: %w", ErrNotFound)
	}
	delete(m.transactions, sorted[0].ID)
	return sorted[0], nil
}

// Reporting

func (m *MemoryStore) SpendingSummary(ctx context.Context, since time.Time) (*SpendingSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return summarize(m.sinceLocked(since), since), nil
}

func (m *MemoryStore) DailyTotals(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return dailyTotals(m.sinceLocked(since)), nil
}

// Balance operations

func (m *MemoryStore) GetBalance(ctx context.Context) (*Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b := m.balance
	return &b, nil
}

func (m *MemoryStore) SetBalance(ctx context.Context, cash, bank *float64) (*Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cash != nil {
		m.balance.Cash = *cash
	}
	if bank != nil {
		m.balance.Bank = *bank
	}
	m.balance.UpdatedAt = m.now()
	b := m.balance
	return &b, nil
}

func (m *MemoryStore) AdjustBalance(ctx context.Context, cashDelta, bankDelta float64) (*Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balance.Cash += cashDelta
	m.balance.Bank += bankDelta
	m.balance.UpdatedAt = m.now()
	b := m.balance
	return &b, nil
}

func (m *MemoryStore) Close() error { return nil }

// sortedLocked returns copies of every transaction, newest first.
func (m *MemoryStore) sortedLocked() []*Transaction {
	out := make([]*Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		c := *tx
		out = append(out, &c)
	}
	newestFirst(out)
	return out
}

func (m *MemoryStore) sinceLocked(since time.Time) []*Transaction {
	var out []*Transaction
	for _, tx := range m.sortedLocked() {
		if !tx.CreatedAt.Before(since) {
			out = append(out, tx)
		}
	}
	return out
}

func limitTo(txs []*Transaction, limit int) []*Transaction {
	if limit > 0 && len(txs) > limit {
		return txs[:limit]
	}
	return txs
}
