// Package memory provides map-backed repository implementations with
// the same per-account serialization guarantees as the postgres ones.
// Used by the test suites and by local development without a database.
package memory

import (
	"sync"
	"time"

	"github.com/finwise/ledger-api/internal/domain/entity"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]entity.User
	byEmail  map[string]string // lowercased email -> user id
	accounts map[string]entity.Account
	txs      map[string]entity.Transaction
	reversed map[string]string // original tx id -> reversal tx id

	lockMu    sync.Mutex
	acctLocks map[string]*sync.Mutex

	seq int64 // breaks created_at ties from a coarse clock
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]entity.User),
		byEmail:   make(map[string]string),
		accounts:  make(map[string]entity.Account),
		txs:       make(map[string]entity.Transaction),
		reversed:  make(map[string]string),
		acctLocks: make(map[string]*sync.Mutex),
	}
}

// accountLock returns the mutex serializing writes to one account.
// Postings against different accounts never share a lock.
func (s *Store) accountLock(accountID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.acctLocks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.acctLocks[accountID] = l
	}
	return l
}

// now returns a strictly increasing timestamp so created_at is a
// usable tie-break even when the wall clock is coarse.
func (s *Store) now() time.Time {
	s.seq++
	return time.Now().Add(time.Duration(s.seq) * time.Nanosecond)
}
