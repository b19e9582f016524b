package tokenstore

import (
	"path/filepath"
	"testing"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

func credWithProvider(provider string, start int64) entity.CredentialRecord {
	return entity.CredentialRecord{
		TokenInfo: &entity.TokenInfo{
			Token: entity.InnerToken{Provider: provider, Start: start},
		},
	}
}

func TestAddAssignsDenseIDsAndAutoAlias(t *testing.T) {
	s := New()

	e1, err := s.Add(credWithProvider("auth0", 1))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if e1.ID != 0 || e1.Alias != "unnamed-0" {
		t.Fatalf("got %+v", e1)
	}

	e2, err := s.Add(credWithProvider("auth0", 2))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if e2.ID != 1 || e2.Alias != "unnamed-1" {
		t.Fatalf("got %+v", e2)
	}
}

func TestAddRejectsDuplicateKey(t *testing.T) {
	s := New()
	cred := credWithProvider("auth0", 1)

	if _, err := s.Add(cred); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	if _, err := s.Add(cred); err != ErrAlreadyExists {
		t.Fatalf("second Add() error = %v, want ErrAlreadyExists", err)
	}
}

func TestRemoveTombstonesWithoutReusingID(t *testing.T) {
	s := New()
	e1, _ := s.Add(credWithProvider("auth0", 1))
	e2, _ := s.Add(credWithProvider("auth0", 2))

	if err := s.Remove(e1.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.GetByID(e1.ID); err != ErrNotFound {
		t.Fatalf("GetByID(removed) error = %v, want ErrNotFound", err)
	}

	e3, err := s.Add(credWithProvider("auth0", 3))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if e3.ID == e1.ID {
		t.Fatalf("expected a fresh id, got reused id %d", e3.ID)
	}
	if e3.ID <= e2.ID {
		t.Fatalf("expected new id to grow past existing max, got %d", e3.ID)
	}

	if got, err := s.GetByID(e2.ID); err != nil || got.ID != e2.ID {
		t.Fatalf("surviving entry disturbed: got=%+v err=%v", got, err)
	}
}

func TestSetAliasRejectsCollision(t *testing.T) {
	s := New()
	e1, _ := s.Add(credWithProvider("auth0", 1))
	e2, _ := s.Add(credWithProvider("auth0", 2))

	if err := s.SetAlias(e2.ID, e1.Alias); err != ErrAliasCollision {
		t.Fatalf("SetAlias() error = %v, want ErrAliasCollision", err)
	}

	oldAlias := e2.Alias
	if err := s.SetAlias(e2.ID, "prod-key"); err != nil {
		t.Fatalf("SetAlias() error = %v", err)
	}
	got, err := s.GetByAlias("prod-key")
	if err != nil || got.ID != e2.ID {
		t.Fatalf("GetByAlias() = %+v, %v", got, err)
	}
	if _, err := s.GetByAlias(oldAlias); err == nil {
		t.Fatalf("expected old alias to no longer resolve")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.bin")

	s := New()
	s.Add(credWithProvider("auth0", 1))
	s.Add(credWithProvider("google-oauth2", 2))
	s.SetAlias(1, "prod")

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, err := loaded.GetByAlias("prod")
	if err != nil || got.ID != 1 {
		t.Fatalf("GetByAlias() after load = %+v, %v", got, err)
	}
	if len(loaded.List()) != 2 {
		t.Fatalf("got %d entries, want 2", len(loaded.List()))
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := New()
	if err := s.Load(filepath.Join(t.TempDir(), "missing.bin")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestHealthTrackerOpensAfterThreshold(t *testing.T) {
	h := NewHealthTracker(3, 0)
	if !h.IsHealthy(1) {
		t.Fatalf("expected fresh token healthy")
	}

	h.MarkUnhealthy(1)
	h.MarkUnhealthy(1)
	if !h.IsHealthy(1) {
		t.Fatalf("expected token still healthy below threshold")
	}

	h.MarkUnhealthy(1)
	if h.State(1) != HealthUnhealthy {
		t.Fatalf("State() = %v, want HealthUnhealthy", h.State(1))
	}
}

func TestHealthTrackerProbeRecovers(t *testing.T) {
	h := NewHealthTracker(1, 0) // zero recovery timeout: probe immediately eligible
	h.MarkUnhealthy(1)
	if h.State(1) != HealthUnhealthy {
		t.Fatalf("expected unhealthy after one failure at threshold 1")
	}

	if !h.IsHealthy(1) {
		t.Fatalf("expected probe to be allowed once recovery timeout elapses")
	}
	if h.State(1) != HealthProbing {
		t.Fatalf("State() = %v, want HealthProbing", h.State(1))
	}

	h.MarkHealthy(1)
	if h.State(1) != HealthHealthy {
		t.Fatalf("State() = %v, want HealthHealthy after successful probe", h.State(1))
	}
}

func TestHealthTrackerFailureDuringProbeReopens(t *testing.T) {
	h := NewHealthTracker(1, 0)
	h.MarkUnhealthy(1)
	h.IsHealthy(1) // transitions to probing
	h.MarkUnhealthy(1)
	if h.State(1) != HealthUnhealthy {
		t.Fatalf("State() = %v, want HealthUnhealthy after probe failure", h.State(1))
	}
}
