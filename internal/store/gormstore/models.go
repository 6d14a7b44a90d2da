package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const revisionCounterID = 1

// StateValue mirrors the ledger_state table: one row per persisted journal key.
type StateValue struct {
	StateKey  string    `gorm:"column:state_key;primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	Revision  int64     `gorm:"not null;index:idx_ledger_state_revision"`
	WriterID  string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (StateValue) TableName() string { return "ledger_state" }

// RevisionCounter mirrors the single-row ledger_revision table. Writers increment it
// first in their transaction, so revisions are committed in increasing order.
type RevisionCounter struct {
	CounterID int64 `gorm:"primaryKey;autoIncrement:false"`
	Value     int64 `gorm:"not null"`
}

func (RevisionCounter) TableName() string { return "ledger_revision" }

// OperationRecord mirrors the ledger_operations audit table.
type OperationRecord struct {
	RecordID     string         `gorm:"type:uuid;primaryKey"`
	Operation    string         `gorm:"not null;index:idx_ledger_operations_operation"`
	Status       string         `gorm:"not null"`
	EntryID      string         `gorm:""`
	ItemID       string         `gorm:""`
	GoldDelta    int64          `gorm:"not null"`
	GoldBalance  int64          `gorm:"not null"`
	Streak       int64          `gorm:"not null"`
	ErrorMessage string         `gorm:""`
	Metadata     datatypes.JSON `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_ledger_operations_created"`
}

func (OperationRecord) TableName() string { return "ledger_operations" }

func (record *OperationRecord) BeforeCreate(tx *gorm.DB) error {
	if record.RecordID == "" {
		record.RecordID = uuid.NewString()
	}
	return nil
}

// Migrate creates or updates every table the store uses and seeds the revision counter
// from the newest stored revision.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&StateValue{}, &RevisionCounter{}, &OperationRecord{}); err != nil {
		return err
	}
	var latest revisionRow
	if err := db.Model(&StateValue{}).Select("coalesce(max(revision),0) as revision").Scan(&latest).Error; err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RevisionCounter{CounterID: revisionCounterID, Value: latest.Revision}).Error
}
