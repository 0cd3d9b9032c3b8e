package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DisabledEvents tracks all the events we no longer wish to display to
// users. These are either legacy events or events where the associated
// data never ended up being used. They are still recorded and retained;
// filtering them is a read-time concern.
var DisabledEvents = []string{"server:file.upload"}

// ActivityLog represents one immutable audit record. Rows are written once
// when a significant action happens somewhere in the panel, read many times,
// and only ever removed by the age-based prune sweep.
type ActivityLog struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	Batch       *uuid.UUID        `json:"batch,omitempty" gorm:"type:uuid;index"`
	Event       string            `json:"event" gorm:"type:varchar(255);not null;index"`
	IP          string            `json:"ip" gorm:"type:varchar(45);not null"`
	Description string            `json:"description,omitempty" gorm:"type:text"`
	ActorType   *string           `json:"actor_type,omitempty" gorm:"type:varchar(100);index:idx_activity_actor"`
	ActorID     *uuid.UUID        `json:"actor_id,omitempty" gorm:"type:uuid;index:idx_activity_actor"`
	APIKeyID    *uuid.UUID        `json:"api_key_id,omitempty" gorm:"type:uuid"`
	Properties  datatypes.JSONMap `json:"properties,omitempty" gorm:"type:jsonb"`
	Timestamp   time.Time         `json:"timestamp" gorm:"not null;index"`

	// Relations
	Subjects []ActivityLogSubject `json:"subjects" gorm:"foreignKey:ActivityLogID"`
}

// TableName returns the table name for ActivityLog
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// BeforeCreate will set ID if not set
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// HasActor reports whether the entry was performed by a known actor.
// Entries without one are system-initiated.
func (a *ActivityLog) HasActor() bool {
	return a.ActorType != nil && a.ActorID != nil
}

// IsDisabled reports whether the event is on the legacy disabled list
func (a *ActivityLog) IsDisabled() bool {
	for _, event := range DisabledEvents {
		if a.Event == event {
			return true
		}
	}
	return false
}

// ActivityLogSubject links an activity entry to an entity the event acted
// upon, as a polymorphic {type, id} reference.
type ActivityLogSubject struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ActivityLogID uuid.UUID `json:"activity_log_id" gorm:"type:uuid;not null;index"`
	SubjectType   string    `json:"subject_type" gorm:"type:varchar(100);not null"`
	SubjectID     uuid.UUID `json:"subject_id" gorm:"type:uuid;not null"`
}

// TableName returns the table name for ActivityLogSubject
func (ActivityLogSubject) TableName() string {
	return "activity_log_subjects"
}

// BeforeCreate will set ID if not set
func (s *ActivityLogSubject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
