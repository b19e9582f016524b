package logstore

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/snapshotio"
)

// snapshot is the on-disk shape written by Save and read by Load: the log
// sequence plus the token side table. refcount is never persisted; Load
// rebuilds it from the logs themselves.
type snapshot struct {
	Logs      []entity.LogEntry                      `cbor:"0,keyasint"`
	SideTable map[entity.TokenKey]*entity.TokenEntry `cbor:"1,keyasint"`
}

// Save writes an atomic truncate-and-replace snapshot of the log ring and
// its token side table to path.
func (m *Manager) Save(path string) error {
	var snap snapshot
	m.do(func(s *state) {
		snap = snapshot{Logs: s.logs, SideTable: s.sideTable}
	})

	encoded, err := cbor.Marshal(snap)
	if err != nil {
		return err
	}
	return snapshotio.WriteAtomic(path, encoded)
}

// Load replaces the ring's contents with the snapshot at path, rebuilding
// refcount from the loaded logs and evicting any side-table entry no
// longer referenced. A missing file leaves the ring empty.
func (m *Manager) Load(path string) error {
	data, err := snapshotio.ReadOrEmpty(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var snap snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return err
	}

	m.do(func(s *state) {
		s.logs = snap.Logs
		if snap.SideTable != nil {
			s.sideTable = snap.SideTable
		} else {
			s.sideTable = make(map[entity.TokenKey]*entity.TokenEntry)
		}
		s.rebuildRefcount()
	})
	return nil
}
