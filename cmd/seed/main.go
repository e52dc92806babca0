// Seeds a development database with an admin account, a starter subject
// catalog and a handful of sample notes. Idempotent: existing rows are
// left alone.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusnotes/campus-notes-api/pkg/config"
	"github.com/campusnotes/campus-notes-api/pkg/database"
)

var defaultSubjects = []struct {
	Name  string
	Code  string
	Color string
}{
	{"Mathematics", "MATH", "#3B82F6"},
	{"Computer Science", "CS", "#8B5CF6"},
	{"Physics", "PHY", "#F59E0B"},
	{"Chemistry", "CHEM", "#10B981"},
	{"Economics", "ECON", "#EF4444"},
}

func main() {
	var (
		adminEmail    string
		adminPassword string
	)
	flag.StringVar(&adminEmail, "admin-email", "admin@example.edu", "admin account email")
	flag.StringVar(&adminPassword, "admin-password", "changeme123", "admin account password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seedAdmin(ctx, db, adminEmail, adminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	if err := seedSubjects(ctx, db); err != nil {
		log.Fatalf("failed to seed subjects: %v", err)
	}
	if err := seedNotes(ctx, db, adminEmail); err != nil {
		log.Fatalf("failed to seed notes: %v", err)
	}
	log.Println("seed complete")
}

func seedAdmin(ctx context.Context, db *sqlx.DB, email, password string) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email); err != nil {
		return err
	}
	if exists {
		log.Printf("admin %s already present", email)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, user_role, is_verified, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'admin', TRUE, TRUE, $5, $5)`,
		uuid.NewString(), email, string(hash), "Administrator", now)
	if err != nil {
		return err
	}
	log.Printf("created admin %s", email)
	return nil
}

func seedSubjects(ctx context.Context, db *sqlx.DB) error {
	now := time.Now().UTC()
	for _, subject := range defaultSubjects {
		result, err := db.ExecContext(ctx, `
			INSERT INTO subjects (id, name, code, color, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, $5, $5)
			ON CONFLICT (code) DO NOTHING`,
			uuid.NewString(), subject.Name, subject.Code, subject.Color, now)
		if err != nil {
			return err
		}
		if rows, err := result.RowsAffected(); err == nil && rows > 0 {
			log.Printf("created subject %s", subject.Code)
		}
	}
	return nil
}

var sampleNotes = []struct {
	Title       string
	SubjectCode string
	Semester    string
	Year        int
	Tags        []string
}{
	{"Calculus I Midterm Review", "MATH", "Fall", 1, []string{"calculus", "midterm"}},
	{"Data Structures Cheat Sheet", "CS", "Spring", 2, []string{"algorithms", "exam"}},
	{"Thermodynamics Lecture Notes", "PHY", "Fall", 2, []string{"thermodynamics"}},
}

func seedNotes(ctx context.Context, db *sqlx.DB, uploaderEmail string) error {
	var uploader struct {
		ID     string  `db:"id"`
		Domain *string `db:"college_domain"`
	}
	if err := db.GetContext(ctx, &uploader, `SELECT id, college_domain FROM users WHERE email = $1`, uploaderEmail); err != nil {
		return err
	}
	domain := ""
	if uploader.Domain != nil {
		domain = *uploader.Domain
	}

	now := time.Now().UTC()
	for _, note := range sampleNotes {
		var exists bool
		if err := db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM notes WHERE title = $1 AND uploader_id = $2)`,
			note.Title, uploader.ID); err != nil {
			return err
		}
		if exists {
			continue
		}

		var subjectID *string
		var id string
		err := db.GetContext(ctx, &id, `SELECT id FROM subjects WHERE code = $1`, note.SubjectCode)
		if err == nil {
			subjectID = &id
		}

		noteID := uuid.NewString()
		filename := strings.ToLower(strings.ReplaceAll(note.Title, " ", "_")) + ".pdf"
		_, err = db.ExecContext(ctx, `
			INSERT INTO notes (id, title, subject_id, uploader_id, file_name, file_path, file_size, file_type, semester, year_of_study, tags, visibility, college_domain, is_verified, is_flagged, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'pdf', $8, $9, $10, 'public', $11, TRUE, FALSE, $12, $12)`,
			noteID, note.Title, subjectID, uploader.ID, filename,
			"seed/"+noteID+"/"+filename, int64(64*1024),
			note.Semester, note.Year, pq.Array(note.Tags), domain, now)
		if err != nil {
			return err
		}
		log.Printf("created note %q", note.Title)
	}
	return nil
}
