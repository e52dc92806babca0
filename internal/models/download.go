package models

import "time"

// NoteDownload is one row of the append-only download audit log. Download
// counts are aggregated from this table, never stored on the note.
type NoteDownload struct {
	ID        string    `db:"id" json:"id"`
	NoteID    string    `db:"note_id" json:"note_id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	IPAddress string    `db:"ip_address" json:"-"`
	UserAgent string    `db:"user_agent" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
