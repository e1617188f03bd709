package models

import "time"

// Note is a saved study guide together with the raw OCR text it was
// generated from.
type Note struct {
	ID         int64       `json:"id"`
	UserID     string      `json:"user_id"`
	Title      string      `json:"title"`
	Subject    string      `json:"subject"`
	Summary    string      `json:"summary"`
	StudyGuide *StudyGuide `json:"study_guide"`
	RawText    string      `json:"raw_text"`
	CreatedAt  time.Time   `json:"created_at"`
}
