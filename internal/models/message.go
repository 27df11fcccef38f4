package models

import "time"

// Message is an immutable direct message.
type Message struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SenderID    uint      `json:"sender_id" gorm:"not null;index"`
	RecipientID uint      `json:"recipient_id" gorm:"not null;index"`
	Body        string    `json:"body" gorm:"size:500;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// SendMessageRequest is the message form.
type SendMessageRequest struct {
	Message string `form:"message" validate:"required,min=1,max=500"`
}
