// Package database keeps a best-effort audit trail of room events in
// MySQL. The trail is write-only from the server's point of view: room
// state is never rebuilt from it.
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/collab-playlist-system/internal/session"
)

// AuditRecord is one committed room mutation.
type AuditRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	EventType  string    `gorm:"index;size:32"`
	RoomCode   string    `gorm:"index;size:16"`
	Username   string    `gorm:"size:191"`
	TrackID    int
	TrackName  string    `gorm:"size:191"`
	VoteCount  int
	OccurredAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

type AuditDB struct {
	db *gorm.DB
}

func NewAuditDB(host, port, user, password, dbname string) (*AuditDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&AuditRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &AuditDB{db: db}, nil
}

// Publish implements session.EventSink.
func (a *AuditDB) Publish(ctx context.Context, event session.Event) error {
	record := AuditRecord{
		EventType:  string(event.Type),
		RoomCode:   event.Room,
		Username:   event.Username,
		TrackID:    event.TrackID,
		TrackName:  event.TrackName,
		VoteCount:  event.VoteCount,
		OccurredAt: event.Timestamp,
	}
	if err := a.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// RecentEvents returns the newest audit records for a room, for
// operator inspection.
func (a *AuditDB) RecentEvents(ctx context.Context, roomCode string, limit int) ([]AuditRecord, error) {
	var records []AuditRecord
	if err := a.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return records, nil
}
