package swap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cross-swap/pkg/types"
)

// DefaultStateFileName is the session state file created in the user's
// home directory when no explicit path is configured.
const DefaultStateFileName = ".cross-swap-state.json"

// Store persists the swap session across restarts: the active
// transaction id plus every transaction record seen. It is the CLI
// analog of mirroring the transaction id into the page URL, so a restart
// can resume tracking without re-executing.
type Store struct {
	filePath string
	mu       sync.RWMutex
	state    sessionState
}

type sessionState struct {
	ActiveTransactionID string                       `json:"active_transaction_id,omitempty"`
	Transactions        map[string]types.Transaction `json:"transactions"`
}

// NewStore opens (or lazily creates) the session state file.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStateFileName)
	}

	s := &Store{
		filePath: filePath,
		state:    sessionState{Transactions: make(map[string]types.Transaction)},
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load session state: %w", err)
		}
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	if state.Transactions == nil {
		state.Transactions = make(map[string]types.Transaction)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}

// SetActive records tx and marks it as the active tracked transaction.
func (s *Store) SetActive(tx types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveTransactionID = tx.ID
	s.state.Transactions[tx.ID] = tx
	return s.save()
}

// ActiveID returns the persisted active transaction id, if any.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveTransactionID
}

// ClearActive forgets the active transaction id; records are kept.
func (s *Store) ClearActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveTransactionID = ""
	return s.save()
}

// Record updates the stored copy of tx.
func (s *Store) Record(tx types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Transactions[tx.ID] = tx
	return s.save()
}

// Get returns the stored record for id.
func (s *Store) Get(id string) (types.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.state.Transactions[id]
	return tx, ok
}

// Transactions returns all stored records.
func (s *Store) Transactions() []types.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Transaction, 0, len(s.state.Transactions))
	for _, tx := range s.state.Transactions {
		out = append(out, tx)
	}
	return out
}
