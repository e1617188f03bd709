// Package notes persists produced study guides for later review.
package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notivate/internal/models"
)

// Service handles note persistence.
type Service struct {
	db *sql.DB
}

// New builds a notes service.
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// Save stores a study guide with the raw text it came from.
func (s *Service) Save(ctx context.Context, userID string, studyGuide *models.StudyGuide, rawText string) (*models.Note, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if studyGuide == nil {
		return nil, errors.New("study guide is required")
	}

	payload, err := json.Marshal(studyGuide)
	if err != nil {
		return nil, fmt.Errorf("encode study guide: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (user_id, title, subject, summary, study_guide, raw_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, studyGuide.Title, studyGuide.Subject, studyGuide.Summary, string(payload), rawText, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("note id: %w", err)
	}
	return &models.Note{
		ID:         id,
		UserID:     userID,
		Title:      studyGuide.Title,
		Subject:    studyGuide.Subject,
		Summary:    studyGuide.Summary,
		StudyGuide: studyGuide,
		RawText:    rawText,
		CreatedAt:  now,
	}, nil
}

// List returns the user's notes, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, subject, summary, study_guide, raw_text, created_at
		 FROM notes WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Get returns one note owned by the user, or sql.ErrNoRows.
func (s *Service) Get(ctx context.Context, userID string, noteID int64) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, subject, summary, study_guide, raw_text, created_at
		 FROM notes WHERE id = ? AND user_id = ?`, noteID, userID,
	)
	note, err := scanNote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return note, nil
}

// Delete removes one note owned by the user, or sql.ErrNoRows when the
// note does not exist.
func (s *Service) Delete(ctx context.Context, userID string, noteID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND user_id = ?`, noteID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanNote(scan func(...any) error) (*models.Note, error) {
	var (
		note    models.Note
		payload string
	)
	if err := scan(&note.ID, &note.UserID, &note.Title, &note.Subject, &note.Summary, &payload, &note.RawText, &note.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	var studyGuide models.StudyGuide
	if err := json.Unmarshal([]byte(payload), &studyGuide); err != nil {
		return nil, fmt.Errorf("decode study guide: %w", err)
	}
	note.StudyGuide = &studyGuide
	return &note, nil
}
