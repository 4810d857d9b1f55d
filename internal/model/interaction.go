package model

import "time"

// Interaction is one logged exchange between a user and the assistant.
type Interaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	UserMessage string    `json:"user_message"`
	OutputText  string    `json:"output_text"`
	EntryID     *int64    `json:"entry_id"`
	Processed   bool      `json:"processed"`
	CreatedAt   time.Time `json:"created_at"`
}
