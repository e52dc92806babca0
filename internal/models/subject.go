package models

import "time"

// Fallback presentation values applied when a note has no subject row.
const (
	DefaultSubjectName  = "General"
	DefaultSubjectColor = "#3B82F6"
)

// Subject represents an academic subject notes can be attached to.
type Subject struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Code          string    `db:"code" json:"code"`
	Color         string    `db:"color" json:"color"`
	CollegeDomain *string   `db:"college_domain" json:"college_domain,omitempty"`
	Active        bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	CollegeDomain string
	Search        string
	ActiveOnly    bool
}
