package dto

import (
	"time"

	"github.com/yigit/submity/internal/app/models"
)

// CreateTextSubmissionRequest is the JSON body for a text submission
type CreateTextSubmissionRequest struct {
	Title       string `json:"title" binding:"required,max=200" example:"Devoir 1"`
	StudentName string `json:"studentName" binding:"required,max=120" example:"Ada"`
	Content     string `json:"content" binding:"required" example:"Ma réponse"`
}

// VerifyEditCodeRequest carries the edit code typed by the teacher
type VerifyEditCodeRequest struct {
	EditCode string `json:"editCode" binding:"required" example:"K7Q2ZP"`
}

// CorrectionRequest grades a submission
type CorrectionRequest struct {
	EditCode     string `json:"editCode" binding:"required" example:"K7Q2ZP"`
	Grade        string `json:"grade" binding:"required" example:"15/20"`
	Appreciation string `json:"appreciation" example:"Bon travail"`
}

// VerifyEditCodeResponse tells whether the code unlocks grading
type VerifyEditCodeResponse struct {
	Valid bool `json:"valid" example:"true"`
}

// SubmissionResponse is the public view of a submission. The edit code is never included.
type SubmissionResponse struct {
	ID              string                  `json:"id"`
	StudentName     string                  `json:"studentName" example:"Ada"`
	Title           string                  `json:"title" example:"Devoir 1"`
	ContentType     models.ContentType      `json:"contentType" example:"text"`
	Content         string                  `json:"content"`
	FileType        models.FileType         `json:"fileType,omitempty" example:"pdf"`
	FileName        string                  `json:"fileName,omitempty"`
	FileURL         string                  `json:"fileUrl,omitempty"`
	Status          models.SubmissionStatus `json:"status" example:"pending"`
	Correction      *models.Correction      `json:"correction,omitempty"`
	ConsultationURL string                  `json:"consultationUrl"`
	CreatedAt       time.Time               `json:"createdAt"`
	ExpiresAt       time.Time               `json:"expiresAt"`
}

// OwnedSubmissionResponse is returned to the author and includes the edit code
type OwnedSubmissionResponse struct {
	SubmissionResponse
	EditCode string `json:"editCode" example:"K7Q2ZP"`
}

// SubmissionListResponse is one page of the dashboard
type SubmissionListResponse struct {
	Submissions []OwnedSubmissionResponse `json:"submissions"`
	Pagination  PaginationInfo            `json:"pagination"`
}

// NewSubmissionResponse builds the public view
func NewSubmissionResponse(s *models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:              s.ID,
		StudentName:     s.StudentName,
		Title:           s.Title,
		ContentType:     s.ContentType,
		Content:         s.Content,
		FileType:        s.FileType,
		FileName:        s.FileName,
		FileURL:         s.FileURL,
		Status:          s.Status,
		Correction:      s.Correction,
		ConsultationURL: s.ConsultationURL,
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.ExpiresAt,
	}
}

// NewOwnedSubmissionResponse builds the author's view
func NewOwnedSubmissionResponse(s *models.Submission) OwnedSubmissionResponse {
	return OwnedSubmissionResponse{
		SubmissionResponse: NewSubmissionResponse(s),
		EditCode:           s.EditCode,
	}
}
