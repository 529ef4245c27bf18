package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/google/uuid"
	derr "github.com/ipandis/dorakit/pkg/errors"
	"github.com/ipandis/dorakit/pkg/key"
)

// BoltAdapter implements Adapter using bbolt, one bucket per table,
// created on first use. It follows the same open/update/view shape as
// a BoltDB-backed key-value store: every write commits immediately to
// bbolt's own ACID transaction, and the action-level Handle is purely
// a grouping token, and Commit and Abort are no-ops. bbolt
// fsyncs on every write transaction commit, so ForceLog here is a
// no-op kept only to satisfy the Adapter interface.
type BoltAdapter struct {
	db *bolt.DB
}

// NewBoltAdapter opens (creating if needed) a bbolt file under
// dataDir.
func NewBoltAdapter(dataDir string) (*BoltAdapter, error) {
	path := filepath.Join(dataDir, "dorakit.db")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt db: %w", err)
	}
	return &BoltAdapter{db: db}, nil
}

// Close closes the underlying database file.
func (a *BoltAdapter) Close() error { return a.db.Close() }

func bucketFor(table string) []byte { return []byte("table:" + table) }

func (a *BoltAdapter) Begin(ctx context.Context) (*Handle, error) {
	return &Handle{ID: uuid.NewString()}, nil
}

func (a *BoltAdapter) Commit(ctx context.Context, h *Handle) error { return nil }

func (a *BoltAdapter) Abort(ctx context.Context, h *Handle) error { return nil }

// envelope is the persisted bbolt value: the row plus enough of the
// original key to reconstruct it for range scans, since Key.Bytes()
// is a one-way encoding.
type envelope struct {
	Fields []key.Field
	Row    Row
}

func (a *BoltAdapter) Get(ctx context.Context, h *Handle, table string, k key.Key) (Row, error) {
	var env envelope
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(table))
		if b == nil {
			return derr.NotFound
		}
		data := b.Get(k.Bytes())
		if data == nil {
			return derr.NotFound
		}
		return json.Unmarshal(data, &env)
	})
	if err != nil {
		return nil, err
	}
	return env.Row, nil
}

func (a *BoltAdapter) Insert(ctx context.Context, h *Handle, table string, k key.Key, row Row) error {
	return a.put(table, k, row)
}

func (a *BoltAdapter) Update(ctx context.Context, h *Handle, table string, k key.Key, row Row) error {
	exists := false
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(table))
		if b != nil && b.Get(k.Bytes()) != nil {
			exists = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !exists {
		return derr.NotFound
	}
	return a.put(table, k, row)
}

func (a *BoltAdapter) put(table string, k key.Key, row Row) error {
	data, err := json.Marshal(envelope{Fields: k.Fields, Row: row})
	if err != nil {
		return fmt.Errorf("storage: marshal row: %w", err)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketFor(table))
		if err != nil {
			return fmt.Errorf("storage: create bucket %s: %w", table, err)
		}
		return b.Put(k.Bytes(), data)
	})
}

func (a *BoltAdapter) Delete(ctx context.Context, h *Handle, table string, k key.Key) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(table))
		if b == nil || b.Get(k.Bytes()) == nil {
			return derr.NotFound
		}
		return b.Delete(k.Bytes())
	})
}

func (a *BoltAdapter) Scan(ctx context.Context, h *Handle, table string, low, high key.Key, dir Direction) (Cursor, error) {
	var keys []key.Key
	var rows []Row

	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(table))
		if b == nil {
			return nil
		}
		rng := key.Range{Table: table, Low: low, High: high}
		c := b.Cursor()
		for _, data := c.First(); data != nil; _, data = c.Next() {
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return fmt.Errorf("storage: unmarshal row: %w", err)
			}
			k := key.Key{Table: table, Fields: env.Fields}
			if !rng.Contains(k) {
				continue
			}
			keys = append(keys, k)
			rows = append(rows, env.Row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dir == Descending {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	return &memCursor{keys: keys, rows: rows, idx: -1}, nil
}

func (a *BoltAdapter) ForceLog(ctx context.Context) error { return nil }
