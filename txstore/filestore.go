package txstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps transactions in memory and persists them to
// transactions.json under the data dir. It backs local runs without a
// database and the test suite.
type FileStore struct {
	mu      sync.Mutex
	records []*Transaction
	byKey   map[string]*Transaction
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &FileStore{
		byKey:   make(map[string]*Transaction),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *FileStore) path() string {
	return filepath.Join(s.dataDir, "transactions.json")
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var records []*Transaction
	if err := json.Unmarshal(data, &records); err != nil {
		return
	}
	s.records = records
	for _, tx := range records {
		if dedupes(tx.Action, tx.TransactionID) {
			s.byKey[tx.TransactionID+"|"+tx.Action] = tx
		}
	}
}

func (s *FileStore) persist() error {
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0o644)
}

// Record persists the attempt, short-circuiting duplicates under the
// store lock so concurrent resubmissions of the same transaction cannot
// both insert.
func (s *FileStore) Record(ctx context.Context, tx *Transaction) (RecordResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dedupes(tx.Action, tx.TransactionID) {
		if prev, ok := s.byKey[tx.TransactionID+"|"+tx.Action]; ok {
			return RecordResult{Duplicate: true, Balance: prev.Balance, RecordID: prev.ID}, nil
		}
	}

	stored := *tx
	stored.ID = uuid.New().String()
	stored.Balance = nextBalance(s.lastBalanceLocked(tx.PlayerID), tx.Action, amountOf(tx))
	stored.CreatedAt = time.Now().UTC()
	s.records = append(s.records, &stored)
	if dedupes(stored.Action, stored.TransactionID) {
		s.byKey[stored.TransactionID+"|"+stored.Action] = &stored
	}
	if err := s.persist(); err != nil {
		// roll the in-memory append back so a failed write has no effect
		s.records = s.records[:len(s.records)-1]
		if dedupes(stored.Action, stored.TransactionID) {
			delete(s.byKey, stored.TransactionID+"|"+stored.Action)
		}
		return RecordResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return RecordResult{Balance: stored.Balance, RecordID: stored.ID}, nil
}

func (s *FileStore) lastBalanceLocked(playerID string) float64 {
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].PlayerID == playerID {
			return s.records[i].Balance
		}
	}
	return 0
}

func (s *FileStore) LastBalance(ctx context.Context, playerID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBalanceLocked(playerID), nil
}

// Recent returns up to limit transactions, newest first.
func (s *FileStore) Recent(ctx context.Context, limit int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.records[i])
	}
	return out, nil
}
