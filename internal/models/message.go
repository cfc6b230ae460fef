package models

import "time"

// Message is a message row. ReadAt is nil until the recipient marks the
// message read.
type Message struct {
	ID           int        `db:"id" json:"id"`
	FromUsername string     `db:"from_username" json:"from_username"`
	ToUsername   string     `db:"to_username" json:"to_username"`
	Body         string     `db:"body" json:"body"`
	SentAt       time.Time  `db:"sent_at" json:"sent_at"`
	ReadAt       *time.Time `db:"read_at" json:"read_at"`
}

// MessageDetail is a message joined with both parties' public fields.
type MessageDetail struct {
	ID       int        `json:"id"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
	FromUser PublicUser `json:"from_user"`
	ToUser   PublicUser `json:"to_user"`
}

// SentMessage is a message viewed from the sender's side, joined with the
// recipient's public fields.
type SentMessage struct {
	ID     int        `json:"id"`
	Body   string     `json:"body"`
	SentAt time.Time  `json:"sent_at"`
	ReadAt *time.Time `json:"read_at"`
	ToUser PublicUser `json:"to_user"`
}

// ReceivedMessage is the symmetric view from the recipient's side.
type ReceivedMessage struct {
	ID       int        `json:"id"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
	FromUser PublicUser `json:"from_user"`
}

// ReadReceipt is returned when a message is marked read.
type ReadReceipt struct {
	ID     int       `db:"id" json:"id"`
	ReadAt time.Time `db:"read_at" json:"read_at"`
}
