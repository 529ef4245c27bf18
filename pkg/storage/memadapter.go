package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/key"
)

// MemAdapter is an in-memory Adapter, used by unit tests and as the
// CLI's default storage backend when no --data-dir is given. It has
// no WAL of its own; ForceLog is a no-op, since durability here is
// only as strong as process lifetime. Writes also apply directly to
// the shared map rather than to an isolated buffer, so Abort is a
// no-op too: MemAdapter is non-transactional by construction, relying
// on every abort path discarding a transaction before its actions
// write anything.
type MemAdapter struct {
	mu     sync.Mutex
	tables map[string]map[string]Row // table -> key bytes -> row
	keys   map[string]map[string]key.Key
}

// NewMemAdapter creates an empty in-memory adapter.
func NewMemAdapter() *MemAdapter {
	return &MemAdapter{
		tables: make(map[string]map[string]Row),
		keys:   make(map[string]map[string]key.Key),
	}
}

func (m *MemAdapter) Begin(ctx context.Context) (*Handle, error) {
	return &Handle{ID: uuid.NewString()}, nil
}

func (m *MemAdapter) Commit(ctx context.Context, h *Handle) error { return nil }

func (m *MemAdapter) Abort(ctx context.Context, h *Handle) error { return nil }

func (m *MemAdapter) Get(ctx context.Context, h *Handle, table string, k key.Key) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[table]
	row, ok := rows[string(k.Bytes())]
	if !ok {
		return nil, errors.NotFound
	}
	return cloneRow(row), nil
}

func (m *MemAdapter) Insert(ctx context.Context, h *Handle, table string, k key.Key, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(table, k, row)
	return nil
}

func (m *MemAdapter) Update(ctx context.Context, h *Handle, table string, k key.Key, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[table][string(k.Bytes())]; !ok {
		return errors.NotFound
	}
	m.put(table, k, row)
	return nil
}

func (m *MemAdapter) Delete(ctx context.Context, h *Handle, table string, k key.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bk := string(k.Bytes())
	if _, ok := m.tables[table][bk]; !ok {
		return errors.NotFound
	}
	delete(m.tables[table], bk)
	delete(m.keys[table], bk)
	return nil
}

func (m *MemAdapter) put(table string, k key.Key, row Row) {
	if m.tables[table] == nil {
		m.tables[table] = make(map[string]Row)
		m.keys[table] = make(map[string]key.Key)
	}
	bk := string(k.Bytes())
	m.tables[table][bk] = cloneRow(row)
	m.keys[table][bk] = k
}

func (m *MemAdapter) Scan(ctx context.Context, h *Handle, table string, low, high key.Key, dir Direction) (Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rng := key.Range{Table: table, Low: low, High: high}
	var matched []key.Key
	for bk, k := range m.keys[table] {
		_ = bk
		if rng.Contains(k) {
			matched = append(matched, k)
		}
	}
	sortKeys(matched, dir)

	rows := make([]Row, len(matched))
	for i, k := range matched {
		rows[i] = cloneRow(m.tables[table][string(k.Bytes())])
	}

	return &memCursor{keys: matched, rows: rows, idx: -1}, nil
}

func (m *MemAdapter) ForceLog(ctx context.Context) error { return nil }

func cloneRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func sortKeys(ks []key.Key, dir Direction) {
	for i := 1; i < len(ks); i++ {
		for j := i; j > 0; j-- {
			c := key.Compare(ks[j-1], ks[j])
			swap := c > 0
			if dir == Descending {
				swap = c < 0
			}
			if !swap {
				break
			}
			ks[j-1], ks[j] = ks[j], ks[j-1]
		}
	}
}

type memCursor struct {
	keys []key.Key
	rows []Row
	idx  int
}

func (c *memCursor) Next() bool {
	c.idx++
	return c.idx < len(c.keys)
}

func (c *memCursor) Key() key.Key { return c.keys[c.idx] }
func (c *memCursor) Row() Row     { return c.rows[c.idx] }
func (c *memCursor) Close() error { return nil }
