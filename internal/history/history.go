// Package history is the LevelDB-backed store of completed analyses, keyed
// by document hash. It lets a repeated analyze of the same paper be served
// from cache and backs the `history` command. Only immutable completed
// results are stored; live session state and settings never touch disk.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/paperlens/paperlens/internal/types"
)

// Key scheme. The "|" separator keeps hex hashes and RFC3339 stamps unambiguous.
//
//	a|<doc-sha>           → Entry JSON (primary record, overwritten on re-analysis)
//	t|<created-at>|<id>   → doc-sha    (chronological index for Recent)
const (
	prefixAnalysis = "a|"
	prefixTime     = "t|"
)

// Entry is one cached analysis.
type Entry struct {
	ID        string               `json:"id"`
	DocSHA    string               `json:"doc_sha"`
	CreatedAt string               `json:"created_at"`
	Result    types.AnalysisResult `json:"result"`
}

// Store wraps a LevelDB database of analysis entries.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the database directory at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DocKey hashes a document into its cache key.
func DocKey(document string) string {
	sum := sha256.Sum256([]byte(document))
	return hex.EncodeToString(sum[:])
}

// Put stores e, assigning ID and CreatedAt when blank. Re-analysis of the
// same document overwrites the primary record and adds a fresh index row.
func (s *Store) Put(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("history: marshal entry: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(prefixAnalysis+e.DocSHA), data)
	batch.Put([]byte(prefixTime+e.CreatedAt+"|"+e.ID), []byte(e.DocSHA))
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("history: write entry: %w", err)
	}
	return nil
}

// GetByDoc returns the cached entry for a document hash, if present.
func (s *Store) GetByDoc(docSHA string) (Entry, bool, error) {
	data, err := s.db.Get([]byte(prefixAnalysis+docSHA), nil)
	if err == leveldb.ErrNotFound {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("history: get %s: %w", docSHA, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("history: unmarshal entry: %w", err)
	}
	return e, true, nil
}

// Recent returns up to n entries, newest first. Index rows whose primary
// record was overwritten by a newer analysis of the same document are
// skipped rather than shown twice.
func (s *Store) Recent(n int) ([]Entry, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixTime)), nil)
	defer iter.Release()

	seen := make(map[string]bool)
	var out []Entry
	for ok := iter.Last(); ok && len(out) < n; ok = iter.Prev() {
		sha := string(iter.Value())
		if seen[sha] {
			continue
		}
		seen[sha] = true
		e, found, err := s.GetByDoc(sha)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, e)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("history: scan: %w", err)
	}
	return out, nil
}
