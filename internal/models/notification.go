package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification - запись во входящих пользователя. Payload хранит NotificationPayload.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// NotificationPayload - то, что видит пользователь в push и во входящих.
type NotificationPayload struct {
	Event string `json:"event"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link"`
}

// NotificationIntent - уведомление, которое нужно отправить после фиксации изменения.
type NotificationIntent struct {
	UserID uuid.UUID
	Event  string
	Title  string
	Body   string
	Link   string
}

// Payload превращает намерение в то, что хранится во входящих.
func (i NotificationIntent) Payload() NotificationPayload {
	return NotificationPayload{Event: i.Event, Title: i.Title, Body: i.Body, Link: i.Link}
}
