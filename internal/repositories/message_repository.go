package repositories

import (
	"context"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for direct message storage
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetInbox(ctx context.Context, recipientID uint, limit int) ([]models.Message, error)
}

// PostgresMessageRepository implements MessageRepository on top of gorm
type PostgresMessageRepository struct {
	db *gorm.DB
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetInbox returns messages received by recipientID, newest first
func (r *PostgresMessageRepository) GetInbox(ctx context.Context, recipientID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	q := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
