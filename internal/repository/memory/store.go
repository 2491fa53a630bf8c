// Package memory is an in-process repository.Store with optimistic
// concurrency control. Transactions buffer their writes and remember the
// version of every row and table they read; commit re-validates those
// versions under a short lock and fails with repository.ErrConflict when any
// of them moved.
package memory

import (
	"context"
	"sort"
	"sync"

	"landmarket/internal/repository"
)

const (
	tblAccounts     = "accounts"
	tblTransactions = "transactions"
	tblRewards      = "rewards"
	tblLocks        = "locks"
	tblLands        = "lands"
	tblAuctions     = "auctions"
	tblOffers       = "offers"
)

type record struct {
	val any
	ver uint64
	seq uint64
}

type table struct {
	rows map[string]record
	ver  uint64
}

// Store keeps every table in memory.
type Store struct {
	mu     sync.Mutex
	clock  uint64
	tables map[string]*table
}

// New returns an empty store.
func New() *Store {
	s := &Store{tables: make(map[string]*table)}
	for _, name := range []string{tblAccounts, tblTransactions, tblRewards, tblLocks, tblLands, tblAuctions, tblOffers} {
		s.tables[name] = &table{rows: make(map[string]record)}
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

// WithTx runs fn against a fresh transaction and commits it if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	if err := fn(ctx, t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range t.reads {
		rec, ok := s.tables[k.table].rows[k.key]
		cur := uint64(0)
		if ok {
			cur = rec.ver
		}
		if cur != seen {
			return repository.ErrConflict
		}
	}
	for name, seen := range t.scans {
		if s.tables[name].ver != seen {
			return repository.ErrConflict
		}
	}
	if len(t.order) == 0 {
		return nil
	}

	s.clock++
	for i, k := range t.order {
		w := t.writes[k]
		tbl := s.tables[k.table]
		if w.deleted {
			delete(tbl.rows, k.key)
		} else {
			// seq keeps insertion order stable across updates.
			seq := s.clock<<16 | uint64(i)
			if prev, ok := tbl.rows[k.key]; ok {
				seq = prev.seq
			}
			tbl.rows[k.key] = record{val: w.val, ver: s.clock, seq: seq}
		}
		tbl.ver = s.clock
	}
	return nil
}

type rowKey struct {
	table string
	key   string
}

type write struct {
	val     any
	deleted bool
}

type memTx struct {
	s      *Store
	reads  map[rowKey]uint64
	cache  map[rowKey]any
	scans  map[string]uint64
	writes map[rowKey]write
	order  []rowKey
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:      s,
		reads:  make(map[rowKey]uint64),
		cache:  make(map[rowKey]any),
		scans:  make(map[string]uint64),
		writes: make(map[rowKey]write),
	}
}

// get returns a private copy of the row, reading through the tx's own writes.
func (t *memTx) get(table, key string) (any, bool) {
	k := rowKey{table, key}
	if w, ok := t.writes[k]; ok {
		if w.deleted {
			return nil, false
		}
		return clone(w.val), true
	}
	if v, ok := t.cache[k]; ok {
		if v == nil {
			return nil, false
		}
		return clone(v), true
	}

	t.s.mu.Lock()
	rec, ok := t.s.tables[table].rows[k.key]
	t.s.mu.Unlock()

	if ok {
		t.reads[k] = rec.ver
		t.cache[k] = rec.val
		return clone(rec.val), true
	}
	t.reads[k] = 0
	t.cache[k] = nil
	return nil, false
}

func (t *memTx) put(table, key string, val any) {
	k := rowKey{table, key}
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = write{val: clone(val)}
}

func (t *memTx) del(table, key string) {
	k := rowKey{table, key}
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = write{deleted: true}
}

// scan returns copies of every row of a table in commit order, overlaid with
// the tx's own writes, and records the table version for validation.
func (t *memTx) scan(table string, keep func(any) bool) []any {
	t.s.mu.Lock()
	tbl := t.s.tables[table]
	if _, ok := t.scans[table]; !ok {
		t.scans[table] = tbl.ver
	}
	type item struct {
		key string
		rec record
	}
	items := make([]item, 0, len(tbl.rows))
	for key, rec := range tbl.rows {
		items = append(items, item{key, rec})
	}
	t.s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].rec.seq != items[j].rec.seq {
			return items[i].rec.seq < items[j].rec.seq
		}
		return items[i].key < items[j].key
	})

	var out []any
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.key] = struct{}{}
		val := it.rec.val
		if w, ok := t.writes[rowKey{table, it.key}]; ok {
			if w.deleted {
				continue
			}
			val = w.val
		}
		if keep(val) {
			out = append(out, clone(val))
		}
	}
	for _, k := range t.order {
		if k.table != table {
			continue
		}
		if _, ok := seen[k.key]; ok {
			continue
		}
		w := t.writes[k]
		if !w.deleted && keep(w.val) {
			out = append(out, clone(w.val))
		}
	}
	return out
}
