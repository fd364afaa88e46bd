package models

import "time"

// ContentType tells whether a submission carries text or a file
type ContentType string

const (
	ContentTypeText ContentType = "text"
	ContentTypeFile ContentType = "file"
)

// FileType is the accepted document format of a file submission
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
)

// SubmissionStatus is the grading state. pending moves to corrected, never back.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusCorrected SubmissionStatus = "corrected"
)

// Correction is the teacher's grading of a submission
type Correction struct {
	Grade        string    `json:"grade" example:"15/20"`
	Appreciation string    `json:"appreciation" example:"Bon travail"`
	CorrectedAt  time.Time `json:"correctedAt"`
}

// Submission is one piece of student work
type Submission struct {
	ID              string           `json:"id" example:"3w5e11264sgsg1p9s4k2f0b3"`
	StudentID       string           `json:"studentId"`
	StudentName     string           `json:"studentName" example:"Ada"`
	Title           string           `json:"title" example:"Devoir 1"`
	ContentType     ContentType      `json:"contentType" example:"text"`
	Content         string           `json:"content"`
	FileType        FileType         `json:"fileType,omitempty"`
	FileName        string           `json:"fileName,omitempty"`
	FileURL         string           `json:"fileUrl,omitempty"`
	Status          SubmissionStatus `json:"status" example:"pending"`
	EditCode        string           `json:"editCode" example:"K7Q2ZP"`
	Correction      *Correction      `json:"correction,omitempty"`
	ConsultationURL string           `json:"consultationUrl,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	ExpiresAt       time.Time        `json:"expiresAt"`
}

// IsActive reports whether the submission has not yet expired at now
func (s *Submission) IsActive(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// SubmissionUpdate lists the fields an update may replace. Nil fields are left untouched.
type SubmissionUpdate struct {
	Title       *string
	StudentName *string
	Content     *string
	Status      *SubmissionStatus
	Correction  *Correction
}

// Apply shallow-merges the non-nil fields into s
func (u SubmissionUpdate) Apply(s *Submission) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.StudentName != nil {
		s.StudentName = *u.StudentName
	}
	if u.Content != nil {
		s.Content = *u.Content
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Correction != nil {
		c := *u.Correction
		s.Correction = &c
	}
}
