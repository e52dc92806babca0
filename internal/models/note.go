package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// NoteVisibility controls who may see a note.
type NoteVisibility string

const (
	VisibilityPublic      NoteVisibility = "public"
	VisibilityCollegeOnly NoteVisibility = "college_only"
	VisibilityPrivate     NoteVisibility = "private"
)

// Valid reports whether the visibility is one of the supported values.
func (v NoteVisibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityCollegeOnly, VisibilityPrivate:
		return true
	}
	return false
}

// Note represents a shared note stored in the notes table.
type Note struct {
	ID            string         `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Description   *string        `db:"description" json:"description,omitempty"`
	SubjectID     *string        `db:"subject_id" json:"subject_id,omitempty"`
	UploaderID    string         `db:"uploader_id" json:"uploader_id"`
	FileName      string         `db:"file_name" json:"file_name"`
	FilePath      string         `db:"file_path" json:"file_path"`
	FileSize      int64          `db:"file_size" json:"file_size"`
	FileType      string         `db:"file_type" json:"file_type"`
	MimeType      *string        `db:"mime_type" json:"mime_type,omitempty"`
	Semester      *string        `db:"semester" json:"semester,omitempty"`
	YearOfStudy   *int           `db:"year_of_study" json:"year_of_study,omitempty"`
	Tags          pq.StringArray `db:"tags" json:"tags"`
	Visibility    NoteVisibility `db:"visibility" json:"visibility"`
	CollegeDomain *string        `db:"college_domain" json:"college_domain,omitempty"`
	Verified      bool           `db:"is_verified" json:"is_verified"`
	Flagged       bool           `db:"is_flagged" json:"is_flagged"`
	FlagReason    *string        `db:"flag_reason" json:"flag_reason,omitempty"`
	FlaggedBy     *string        `db:"flagged_by" json:"-"`
	FlaggedAt     *time.Time     `db:"flagged_at" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// NoteDetail is a note joined with uploader and subject context plus the
// derived download count.
type NoteDetail struct {
	Note
	UploaderFullName *string `db:"uploader_full_name" json:"-"`
	UploaderEmail    *string `db:"uploader_email" json:"-"`
	SubjectName      *string `db:"subject_name" json:"-"`
	SubjectColor     *string `db:"subject_color" json:"-"`
	DownloadCount    int     `db:"download_count" json:"download_count"`
}

// DisplaySubject is the flattened subject block on a display note.
type DisplaySubject struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DisplayNote is the API shape for a note: uploader and subject are resolved
// to presentable values regardless of missing joins.
type DisplayNote struct {
	Note
	UploaderName  string         `json:"uploader_name"`
	Subject       DisplaySubject `json:"subject"`
	DownloadCount int            `json:"download_count"`
}

// Display resolves uploader and subject fallbacks: full name, then the local
// part of the email, then "Anonymous"; subject falls back to General/#3B82F6.
func (d NoteDetail) Display() DisplayNote {
	name := "Anonymous"
	if d.UploaderFullName != nil && strings.TrimSpace(*d.UploaderFullName) != "" {
		name = *d.UploaderFullName
	} else if d.UploaderEmail != nil && *d.UploaderEmail != "" {
		name = strings.SplitN(*d.UploaderEmail, "@", 2)[0]
	}

	subject := DisplaySubject{Name: DefaultSubjectName, Color: DefaultSubjectColor}
	if d.SubjectName != nil && *d.SubjectName != "" {
		subject.Name = *d.SubjectName
	}
	if d.SubjectColor != nil && *d.SubjectColor != "" {
		subject.Color = *d.SubjectColor
	}

	note := d.Note
	if note.Tags == nil {
		note.Tags = pq.StringArray{}
	}
	return DisplayNote{
		Note:          note,
		UploaderName:  name,
		Subject:       subject,
		DownloadCount: d.DownloadCount,
	}
}

// SearchMode selects how the search term is interpreted.
type SearchMode string

const (
	SearchModeAll   SearchMode = "all"
	SearchModeTitle SearchMode = "title"
)

// NoteFilter captures the note listing query identity.
type NoteFilter struct {
	CollegeDomain string
	SubjectID     string
	Semester      string
	YearOfStudy   *int
	Tags          []string
	Search        string
	SearchMode    SearchMode
	Page          int
	PageSize      int
}

// Pagination describes a page of notes. HasMore is inferred from a full page
// rather than a count query.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}
