package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"panelgrid-backend/shared/database/models/audit"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidInput marks Record failures caused by the caller's input, as
// opposed to persistence failures.
var ErrInvalidInput = errors.New("invalid activity input")

// Listener receives each activity record after it has been durably created.
// Delivery is at-least-once and synchronous with the Record call.
type Listener func(*audit.ActivityLog)

// ActorIdentity is the display identity of whoever performed an event
type ActorIdentity struct {
	Username string
	Email    string
	Avatar   string
}

// ActorLookup resolves a polymorphic actor ID into a display identity
type ActorLookup func(id uuid.UUID) (*ActorIdentity, error)

// Archiver receives the rows a prune sweep is about to delete. A failing
// archiver aborts the sweep so no record is lost before it was copied out.
type Archiver interface {
	Archive(logs []audit.ActivityLog) error
}

// Config is injected at construction time. PruneDays is required before
// Prune may run; there is no default retention window.
type Config struct {
	PruneDays      int
	DisabledEvents []string
}

// Store is the audit log store. Records are write-once: nothing here ever
// updates a row after creation.
type Store struct {
	db  *gorm.DB
	cfg Config

	mu        sync.RWMutex
	listeners []Listener
	resolvers map[string]ActorLookup
	archiver  Archiver
}

// NewStore creates an activity store on top of the given database
func NewStore(db *gorm.DB, cfg Config) *Store {
	if cfg.DisabledEvents == nil {
		cfg.DisabledEvents = audit.DisabledEvents
	}
	return &Store{
		db:        db,
		cfg:       cfg,
		resolvers: make(map[string]ActorLookup),
	}
}

// Subscribe registers a listener for newly created records
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RegisterActor registers a lookup capability for an actor type tag
func (s *Store) RegisterActor(typeTag string, lookup ActorLookup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolvers[typeTag] = lookup
}

// SetArchiver attaches an archiver consulted before every prune sweep
func (s *Store) SetArchiver(a Archiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archiver = a
}

// IsDisabled reports whether an event tag is on the read-time exclusion list
func (s *Store) IsDisabled(event string) bool {
	for _, disabled := range s.cfg.DisabledEvents {
		if event == disabled {
			return true
		}
	}
	return false
}

// DisabledEvents returns the read-time exclusion list
func (s *Store) DisabledEvents() []string {
	return s.cfg.DisabledEvents
}

// ActorRef is a polymorphic {type tag, id} reference to whoever performed
// an event
type ActorRef struct {
	Type string
	ID   uuid.UUID
}

// SubjectRef is a polymorphic reference to an entity an event acted upon
type SubjectRef struct {
	Type string
	ID   uuid.UUID
}

// RecordInput describes one activity record to create. A nil Actor means
// the event was system-initiated. Timestamps are never taken from callers.
type RecordInput struct {
	Event       string
	IP          string
	Description string
	Actor       *ActorRef
	APIKeyID    *uuid.UUID
	Batch       *uuid.UUID
	Properties  map[string]interface{}
	Subjects    []SubjectRef
}

func (in *RecordInput) validate() error {
	if in.Event == "" {
		return fmt.Errorf("%w: event is required", ErrInvalidInput)
	}
	if in.IP == "" {
		return fmt.Errorf("%w: ip is required", ErrInvalidInput)
	}
	if in.Properties != nil {
		if _, err := json.Marshal(in.Properties); err != nil {
			return fmt.Errorf("%w: properties must be JSON-serializable: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

// Record creates one immutable activity row plus its subject rows in a
// single transaction, then notifies listeners exactly once with the
// persisted record. The timestamp is assigned here, at the instant of
// creation; any caller-supplied value is ignored by construction.
func (s *Store) Record(in RecordInput) (*audit.ActivityLog, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	rec := &audit.ActivityLog{
		Batch:       in.Batch,
		Event:       in.Event,
		IP:          in.IP,
		Description: in.Description,
		APIKeyID:    in.APIKeyID,
		Timestamp:   time.Now().UTC(),
	}
	if in.Actor != nil {
		actorType := in.Actor.Type
		actorID := in.Actor.ID
		rec.ActorType = &actorType
		rec.ActorID = &actorID
	}
	if in.Properties != nil {
		rec.Properties = datatypes.JSONMap(in.Properties)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		for _, subject := range in.Subjects {
			sub := audit.ActivityLogSubject{
				ActivityLogID: rec.ID,
				SubjectType:   subject.Type,
				SubjectID:     subject.ID,
			}
			if err := tx.Create(&sub).Error; err != nil {
				return err
			}
			rec.Subjects = append(rec.Subjects, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Listeners only hear about records that made it to disk
	s.notify(rec)

	return rec, nil
}

func (s *Store) notify(rec *audit.ActivityLog) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(rec)
	}
}

// ForEvent returns all records with an exact event tag match
func (s *Store) ForEvent(event string) ([]audit.ActivityLog, error) {
	var logs []audit.ActivityLog
	err := s.db.Preload("Subjects").
		Where("event = ?", event).
		Find(&logs).Error
	return logs, err
}

// ForActor returns all records performed by the given actor. Records remain
// retrievable after the actor entity itself was soft-deleted: the log keeps
// its own copy of the {type, id} reference.
func (s *Store) ForActor(actorType string, actorID uuid.UUID) ([]audit.ActivityLog, error) {
	var logs []audit.ActivityLog
	err := s.db.Preload("Subjects").
		Where("actor_type = ? AND actor_id = ?", actorType, actorID).
		Find(&logs).Error
	return logs, err
}

// Find returns a single record by ID
func (s *Store) Find(id uuid.UUID) (*audit.ActivityLog, error) {
	var rec audit.ActivityLog
	if err := s.db.Preload("Subjects").First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Prune removes all records with a timestamp at or before now minus the
// configured retention window and reports how many rows were removed.
// Running it twice in a row removes nothing on the second pass. A missing
// retention window is a configuration error, never a silent no-op.
func (s *Store) Prune(now time.Time) (int64, error) {
	if s.cfg.PruneDays <= 0 {
		return 0, errors.New("cannot prune activity logs: no retention window is configured")
	}

	cutoff := now.AddDate(0, 0, -s.cfg.PruneDays)

	s.mu.RLock()
	archiver := s.archiver
	s.mu.RUnlock()

	if archiver != nil {
		var doomed []audit.ActivityLog
		if err := s.db.Preload("Subjects").Where("timestamp <= ?", cutoff).Find(&doomed).Error; err != nil {
			return 0, err
		}
		if len(doomed) > 0 {
			if err := archiver.Archive(doomed); err != nil {
				return 0, fmt.Errorf("archive before prune failed: %w", err)
			}
		}
	}

	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&audit.ActivityLog{}).Select("id").Where("timestamp <= ?", cutoff)
		if err := tx.Where("activity_log_id IN (?)", subquery).Delete(&audit.ActivityLogSubject{}).Error; err != nil {
			return err
		}

		result := tx.Where("timestamp <= ?", cutoff).Delete(&audit.ActivityLog{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}
