package gormstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultAuditLimit = 50

// AuditLog persists operation logs into ledger_operations. It implements journal.OperationLogger.
type AuditLog struct {
	db      *gorm.DB
	onError func(error)
	nowFn   func() time.Time
}

// NewAuditLog returns an AuditLog. onError receives failed inserts and may be nil.
func NewAuditLog(db *gorm.DB, onError func(error)) *AuditLog {
	return &AuditLog{db: db, onError: onError, nowFn: time.Now}
}

type auditMetadata struct {
	Key    string `json:"key,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// LogOperation stores one operation log. Insert failures go to the error handler.
func (audit *AuditLog) LogOperation(ctx context.Context, entry journal.OperationLog) {
	if err := audit.Record(ctx, entry); err != nil && audit.onError != nil {
		audit.onError(err)
	}
}

// Record stores one operation log and reports failures.
func (audit *AuditLog) Record(ctx context.Context, entry journal.OperationLog) error {
	metadata, err := json.Marshal(auditMetadata{Key: entry.Key, Detail: entry.Detail})
	if err != nil {
		return wrapStoreError(errorSubjectAudit, errorCodeMetadata, err)
	}
	record := OperationRecord{
		Operation:   entry.Operation,
		Status:      entry.Status,
		EntryID:     entry.EntryID.String(),
		ItemID:      entry.ItemID.String(),
		GoldDelta:   int64(entry.GoldDelta),
		GoldBalance: int64(entry.GoldBalance),
		Streak:      int64(entry.Streak),
		Metadata:    datatypes.JSON(metadata),
		CreatedAt:   audit.nowFn().UTC(),
	}
	if entry.Error != nil {
		record.ErrorMessage = entry.Error.Error()
	}
	if err := audit.db.WithContext(ctx).Create(&record).Error; err != nil {
		return wrapStoreError(errorSubjectAudit, errorCodeInsert, err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (audit *AuditLog) List(ctx context.Context, limit int) ([]OperationRecord, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	var rows []OperationRecord
	err := audit.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAudit, errorCodeList, err)
	}
	return rows, nil
}

// SumGoldDelta returns the net gold movement of every successful operation.
// It equals the current balance when the audit log has recorded the journal since its creation.
func (audit *AuditLog) SumGoldDelta(ctx context.Context) (int64, error) {
	var sum sqlSum
	err := audit.db.WithContext(ctx).
		Model(&OperationRecord{}).
		Select("coalesce(sum(gold_delta),0) as total").
		Where("status = ?", "ok").
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectAudit, errorCodeSum, err)
	}
	return sum.Total, nil
}

type sqlSum struct {
	Total int64
}
