// Package journal keeps a tamper-evident, append-only audit trail of
// committed economic events in a local SQLite file. Each entry's hash covers
// the previous entry's hash, so any edited or removed row breaks the chain.
package journal

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"
)

// Entry is one journaled event.
type Entry struct {
	Seq      int64  `db:"seq" json:"seq"`
	Kind     string `db:"kind" json:"kind"`
	Subject  string `db:"subject" json:"subject"`
	Actor    string `db:"actor" json:"actor,omitempty"`
	Amount   int64  `db:"amount" json:"amount"`
	Payload  string `db:"payload" json:"payload,omitempty"`
	AtUnixMs int64  `db:"at_unix_ms" json:"at_unix_ms"`
	PrevHash string `db:"prev_hash" json:"prev_hash"`
	Hash     string `db:"hash" json:"hash"`
}

// NewEntry builds an entry with a JSON payload.
func NewEntry(kind, subject, actor string, amount int64, payload any, at time.Time) Entry {
	e := Entry{Kind: kind, Subject: subject, Actor: actor, Amount: amount, AtUnixMs: at.UnixMilli()}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			e.Payload = string(b)
		}
	}
	return e
}

func (e Entry) digest(prev string) string {
	h := blake3.New(32, nil)
	fmt.Fprintf(h, "%s\n%d\n%s\n%s\n%s\n%d\n%d\n%s", prev, e.Seq, e.Kind, e.Subject, e.Actor, e.Amount, e.AtUnixMs, e.Payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Journal writes entries from a single background goroutine. Append never
// blocks; when the queue is full the entry is dropped and counted.
type Journal struct {
	db  *sqlx.DB
	log *slog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan Entry
	wg     sync.WaitGroup

	dropped atomic.Uint64
}

// Open opens or creates the journal at path and starts the writer.
func Open(path string, log *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	j := &Journal{db: db, log: log, ch: make(chan Entry, 4096)}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.loop()
	}()
	return j, nil
}

func migrate(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS entries (
		seq        INTEGER PRIMARY KEY,
		kind       TEXT NOT NULL,
		subject    TEXT NOT NULL,
		actor      TEXT NOT NULL DEFAULT '',
		amount     INTEGER NOT NULL DEFAULT 0,
		payload    TEXT NOT NULL DEFAULT '',
		at_unix_ms INTEGER NOT NULL,
		prev_hash  TEXT NOT NULL,
		hash       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_subject ON entries(subject);
	CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
	`)
	return err
}

// Append queues e for writing.
func (j *Journal) Append(e Entry) {
	if j == nil {
		return
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.ch <- e:
	default:
		j.dropped.Add(1)
		j.log.Warn("journal queue full, entry dropped", "kind", e.Kind, "subject", e.Subject)
	}
}

// Close drains the queue and closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.ch)
	j.mu.Unlock()

	j.wg.Wait()
	return j.db.Close()
}

func (j *Journal) loop() {
	var seq int64
	var prev string
	if err := j.db.QueryRowx(`SELECT seq, hash FROM entries ORDER BY seq DESC LIMIT 1`).Scan(&seq, &prev); err != nil {
		seq, prev = 0, ""
	}

	for e := range j.ch {
		e.Seq = seq + 1
		e.PrevHash = prev
		e.Hash = e.digest(prev)
		_, err := j.db.NamedExec(`INSERT INTO entries (seq, kind, subject, actor, amount, payload, at_unix_ms, prev_hash, hash)
			VALUES (:seq, :kind, :subject, :actor, :amount, :payload, :at_unix_ms, :prev_hash, :hash)`, e)
		if err != nil {
			j.log.Error("journal write failed", "kind", e.Kind, "subject", e.Subject, "error", err)
			continue
		}
		seq, prev = e.Seq, e.Hash
	}
}

// Query returns the entries for subject, oldest first. An empty subject
// returns the whole journal. limit <= 0 means no limit.
func (j *Journal) Query(subject string, limit int) ([]Entry, error) {
	q := `SELECT seq, kind, subject, actor, amount, payload, at_unix_ms, prev_hash, hash FROM entries`
	var args []any
	if subject != "" {
		q += ` WHERE subject = ?`
		args = append(args, subject)
	}
	q += ` ORDER BY seq`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var out []Entry
	if err := j.db.Select(&out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Verify walks the chain and returns the sequence number of the first entry
// whose hash does not match, or 0 when the journal is intact.
func (j *Journal) Verify() (int64, error) {
	rows, err := j.db.Queryx(`SELECT seq, kind, subject, actor, amount, payload, at_unix_ms, prev_hash, hash FROM entries ORDER BY seq`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	prev := ""
	var expect int64 = 1
	for rows.Next() {
		var e Entry
		if err := rows.StructScan(&e); err != nil {
			return 0, err
		}
		if e.Seq != expect || e.PrevHash != prev || e.digest(prev) != e.Hash {
			return e.Seq, nil
		}
		prev = e.Hash
		expect++
	}
	return 0, rows.Err()
}

// Dropped reports how many entries were discarded because the queue was full.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}
