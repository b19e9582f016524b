// Package tokenstore implements the token manager (C5): the registry of
// upstream credentials a gateway instance multiplexes requests across, plus
// per-token health tracking and mmap-backed persistence.
package tokenstore

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

var (
	ErrAlreadyExists  = errors.New("tokenstore: credential already registered")
	ErrNotFound       = errors.New("tokenstore: token not found")
	ErrAliasCollision = errors.New("tokenstore: alias already owned by another token")
)

// Store is the in-memory token registry. Slots are never compacted or
// swap-removed on deletion — see tombstone below — so an id remains a
// stable reference to a token for the lifetime of the process.
type Store struct {
	mu        sync.RWMutex
	tokens    []*entity.TokenEntry // nil entries are tombstones
	keyToID   map[entity.TokenKey]int
	aliasToID map[entity.Alias]int
}

// New returns an empty token registry.
func New() *Store {
	return &Store{
		keyToID:   make(map[entity.TokenKey]int),
		aliasToID: make(map[entity.Alias]int),
	}
}

// ComputeKey derives a stable key from a credential's inner token, used to
// deduplicate re-added credentials across restarts.
func ComputeKey(cred entity.CredentialRecord) (entity.TokenKey, error) {
	if cred.TokenInfo == nil {
		return entity.TokenKey{}, errors.New("tokenstore: credential has no token_info")
	}
	b, err := cbor.Marshal(cred.TokenInfo.Token)
	if err != nil {
		return entity.TokenKey{}, err
	}
	return entity.TokenKey(sha256.Sum256(b)), nil
}

// Add registers a new credential, returning ErrAlreadyExists if its key is
// already present. The new entry gets the next dense id and an
// auto-generated "unnamed-<id>" alias.
func (s *Store) Add(cred entity.CredentialRecord) (*entity.TokenEntry, error) {
	key, err := ComputeKey(cred)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keyToID[key]; exists {
		return nil, ErrAlreadyExists
	}

	id := len(s.tokens)
	alias := entity.Alias(fmt.Sprintf("unnamed-%d", id))

	entry := &entity.TokenEntry{
		ID:         id,
		Key:        key,
		Alias:      alias,
		Credential: cred,
	}
	if cred.TokenInfo != nil {
		if cred.TokenInfo.ProxyName != nil {
			entry.ProxyName = *cred.TokenInfo.ProxyName
		}
		if cred.TokenInfo.Timezone != nil {
			entry.Timezone = *cred.TokenInfo.Timezone
		}
	}

	s.tokens = append(s.tokens, entry)
	s.keyToID[key] = id
	s.aliasToID[alias] = id

	return entry, nil
}

// Remove tombstones the given ids: the slot is nilled out but never
// reused, so existing ids elsewhere in the registry stay stable.
func (s *Store) Remove(ids ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if id < 0 || id >= len(s.tokens) || s.tokens[id] == nil {
			return ErrNotFound
		}
		entry := s.tokens[id]
		delete(s.keyToID, entry.Key)
		delete(s.aliasToID, entry.Alias)
		s.tokens[id] = nil
	}
	return nil
}

// SetAlias renames a token's alias, failing if another live token already
// owns that alias.
func (s *Store) SetAlias(id int, alias entity.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= len(s.tokens) || s.tokens[id] == nil {
		return ErrNotFound
	}
	if owner, exists := s.aliasToID[alias]; exists && owner != id {
		return ErrAliasCollision
	}

	entry := s.tokens[id]
	delete(s.aliasToID, entry.Alias)
	entry.Alias = alias
	s.aliasToID[alias] = id

	return nil
}

// GetByID returns the token at id, or ErrNotFound if it doesn't exist or
// has been removed.
func (s *Store) GetByID(id int) (*entity.TokenEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.tokens) || s.tokens[id] == nil {
		return nil, ErrNotFound
	}
	return s.tokens[id], nil
}

// GetByKey looks up a token by its derived credential key.
func (s *Store) GetByKey(key entity.TokenKey) (*entity.TokenEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.keyToID[key]
	if !exists {
		return nil, ErrNotFound
	}
	return s.tokens[id], nil
}

// GetByAlias looks up a token by its current alias.
func (s *Store) GetByAlias(alias entity.Alias) (*entity.TokenEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.aliasToID[alias]
	if !exists {
		return nil, ErrNotFound
	}
	return s.tokens[id], nil
}

// List returns every live (non-tombstoned) token, in id order.
func (s *Store) List() []*entity.TokenEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.TokenEntry, 0, len(s.tokens))
	for _, t := range s.tokens {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
