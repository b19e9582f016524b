package tokenstore

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/snapshotio"
)

// Save writes an atomic truncate-and-replace snapshot of every token slot
// to path, tombstones included, so ids keep their slots across a reload.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	entries := append([]*entity.TokenEntry(nil), s.tokens...)
	s.mu.RUnlock()

	encoded, err := cbor.Marshal(entries)
	if err != nil {
		return err
	}

	return snapshotio.WriteAtomic(path, encoded)
}

// Load replaces the registry's contents with the snapshot at path. A
// missing file is treated as an empty store, matching readers tolerating
// stale/missing persisted state.
func (s *Store) Load(path string) error {
	data, err := snapshotio.ReadOrEmpty(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var entries []*entity.TokenEntry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make([]*entity.TokenEntry, 0, len(entries))
	s.keyToID = make(map[entity.TokenKey]int, len(entries))
	s.aliasToID = make(map[entity.Alias]int, len(entries))

	for _, e := range entries {
		if e == nil {
			s.tokens = append(s.tokens, nil)
			continue
		}
		id := len(s.tokens)
		s.tokens = append(s.tokens, e)
		s.keyToID[e.Key] = id
		s.aliasToID[e.Alias] = id
	}

	return nil
}
