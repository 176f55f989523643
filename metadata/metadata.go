// Package metadata wraps the recording-record endpoints of the signing
// authority. The wrappers are thin pass-throughs with no state machine of
// their own; their one responsibility beyond forwarding is advancing the
// bucket's last-modified clock after every successful mutation.
package metadata

import (
	"fmt"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/google/uuid"
	"github.com/guildrec/go-vodutils/transfer/gateway"
)

// RecordAPI is the slice of the gateway client the store depends on.
type RecordAPI interface {
	ListRecordings() ([]gateway.Recording, error)
	CreateRecording(recording gateway.Recording) error
	DeleteRecording(id string) error
	ProtectRecording(id string, protected bool) error
	TagRecording(id string, tags []string) error
	Quota() (gateway.Quota, error)
	SetMaxStorage(maxStorageBytes int64) error
}

// ClockAdvancer advances the bucket's last-modified clock; implemented by
// lastmod.Detector. May be nil if the caller does not track remote changes.
type ClockAdvancer interface {
	Advance() error
}

// Store ...
type Store struct {
	api    RecordAPI
	clock  ClockAdvancer
	logger log.Logger
}

// NewStore ...
func NewStore(api RecordAPI, clock ClockAdvancer, logger log.Logger) *Store {
	return &Store{api: api, clock: clock, logger: logger}
}

// List returns every recording record in the bucket.
func (s *Store) List() ([]gateway.Recording, error) {
	return s.api.ListRecordings()
}

// Create stores a new recording record, assigning an ID and creation time if
// the caller left them empty.
func (s *Store) Create(recording gateway.Recording) (gateway.Recording, error) {
	if recording.ID == "" {
		recording.ID = uuid.NewString()
	}
	if recording.CreatedAt == "" {
		recording.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.api.CreateRecording(recording); err != nil {
		return gateway.Recording{}, fmt.Errorf("create recording: %w", err)
	}
	s.advanceClock("creating " + recording.ID)
	return recording, nil
}

// Delete removes a recording record.
func (s *Store) Delete(id string) error {
	if err := s.api.DeleteRecording(id); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	s.advanceClock("deleting " + id)
	return nil
}

// Protect marks a recording as protected from automatic cleanup, or clears
// the mark.
func (s *Store) Protect(id string, protected bool) error {
	if err := s.api.ProtectRecording(id, protected); err != nil {
		return fmt.Errorf("protect recording: %w", err)
	}
	s.advanceClock("protecting " + id)
	return nil
}

// Tag replaces the tag list of a recording.
func (s *Store) Tag(id string, tags []string) error {
	if err := s.api.TagRecording(id, tags); err != nil {
		return fmt.Errorf("tag recording: %w", err)
	}
	s.advanceClock("tagging " + id)
	return nil
}

// Usage reads the bucket's storage usage and configured maximum.
func (s *Store) Usage() (gateway.Quota, error) {
	return s.api.Quota()
}

// SetMaxStorage updates the bucket's storage allowance. Quota configuration
// does not touch bucket contents, so the clock is not advanced.
func (s *Store) SetMaxStorage(maxStorageBytes int64) error {
	return s.api.SetMaxStorage(maxStorageBytes)
}

func (s *Store) advanceClock(op string) {
	if s.clock == nil {
		return
	}
	if err := s.clock.Advance(); err != nil {
		s.logger.Warnf("failed to advance last-modified after %s: %s", op, err)
	}
}
