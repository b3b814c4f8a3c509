package message

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// messageRecord is the persistence model mapped onto the messages table.
type messageRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey;column:id"`
	Name      string    `gorm:"size:120;not null;column:name"`
	Email     string    `gorm:"size:254;not null;column:email"`
	Body      string    `gorm:"type:text;not null;column:body"`
	CreatedAt time.Time `gorm:"index;not null;column:created_at"`
}

func (messageRecord) TableName() string { return "messages" }

func (r messageRecord) toDomain() Message {
	return Message{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
}

func toRecord(m Message) messageRecord {
	return messageRecord{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

// PostgresStore implements Store on top of a postgres table via gorm.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to postgres, migrates the messages table and
// returns the store.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&messageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate messages table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Save inserts the message, assigning ID and CreatedAt when unset.
func (s *PostgresStore) Save(ctx context.Context, msg Message) (Message, error) {
	if msg.Name == "" && msg.Email == "" && msg.Body == "" {
		return Message{}, ErrEmptyMessage
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	record := toRecord(msg)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Message{}, fmt.Errorf("save message: %w", err)
	}
	return record.toDomain(), nil
}

// List returns up to limit messages, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var records []messageRecord
	if err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]Message, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

// Count returns the number of stored messages.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&messageRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return int(n), nil
}
