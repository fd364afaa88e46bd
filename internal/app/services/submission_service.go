package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/app/models/dto"
	"github.com/yigit/submity/internal/app/repositories"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/codegen"
	"github.com/yigit/submity/internal/pkg/filestorage"
	"github.com/yigit/submity/internal/pkg/helpers"
	"github.com/yigit/submity/internal/pkg/validation"
)

// Accepted upload formats
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

const (
	defaultRetention     = 30 * 24 * time.Hour
	defaultMaxUploadSize = 10 << 20
)

// SubmissionConfig holds the settings the submission service depends on
type SubmissionConfig struct {
	PublicBaseURL string
	Retention     time.Duration
	MaxUploadSize int64
}

// UploadedFile is a document attached to a submission
type UploadedFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// CreateSubmissionInput carries everything needed to submit work
type CreateSubmissionInput struct {
	StudentID   string // empty for anonymous submissions
	StudentName string
	Title       string
	ContentType models.ContentType
	Content     string
	File        *UploadedFile
}

// SubmissionNotifier is told when a submission is graded or removed
type SubmissionNotifier interface {
	SubmissionCorrected(submission *models.Submission)
	SubmissionDeleted(id string)
}

type nopNotifier struct{}

func (nopNotifier) SubmissionCorrected(*models.Submission) {}
func (nopNotifier) SubmissionDeleted(string)               {}

// SubmissionService handles the submission lifecycle
type SubmissionService struct {
	repo     *repositories.SubmissionRepository
	files    filestorage.FileStorage
	notifier SubmissionNotifier
	config   SubmissionConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	repo *repositories.SubmissionRepository,
	files filestorage.FileStorage,
	config SubmissionConfig,
	logger zerolog.Logger,
) *SubmissionService {
	if config.Retention <= 0 {
		config.Retention = defaultRetention
	}
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = defaultMaxUploadSize
	}
	return &SubmissionService{
		repo:     repo,
		files:    files,
		notifier: nopNotifier{},
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNotifier registers the receiver of grading and deletion events
func (s *SubmissionService) WithNotifier(n SubmissionNotifier) *SubmissionService {
	if n != nil {
		s.notifier = n
	}
	return s
}

// WithClock replaces the clock used for timestamps
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.now = now
	return s
}

// Submit validates the input, stores the attached file if any and records
// a pending submission with a fresh edit code.
func (s *SubmissionService) Submit(ctx context.Context, in CreateSubmissionInput) (*models.Submission, error) {
	title := strings.TrimSpace(in.Title)
	studentName := strings.TrimSpace(in.StudentName)

	if err := checkField("title", title, validation.TitleMaxLength); err != nil {
		return nil, err
	}
	if err := checkField("studentName", studentName, validation.NameMaxLength); err != nil {
		return nil, err
	}

	editCode, err := codegen.GenerateEditCode()
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	now := s.now()
	submission := &models.Submission{
		ID:          codegen.GenerateID(),
		StudentID:   in.StudentID,
		StudentName: studentName,
		Title:       title,
		ContentType: in.ContentType,
		Status:      models.StatusPending,
		EditCode:    editCode,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.Retention),
	}
	submission.ConsultationURL = s.ConsultationURL(submission.ID)

	switch in.ContentType {
	case models.ContentTypeText:
		if strings.TrimSpace(in.Content) == "" {
			return nil, apperrors.NewValidationError("content is required")
		}
		submission.Content = in.Content
	case models.ContentTypeFile:
		if err := s.attachFile(ctx, submission, in.File); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewValidationError("contentType must be text or file")
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		if submission.FileURL != "" {
			_ = s.files.DeleteFile(ctx, submission.FileURL)
		}
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.Info().
		Str("submissionID", submission.ID).
		Str("contentType", string(submission.ContentType)).
		Bool("anonymous", submission.StudentID == "").
		Msg("Submission created")
	return submission, nil
}

// checkField reports a missing value and an overlong one separately
func checkField(name, value string, maxLen int) error {
	if !validation.NewStringValidation(value).Validate() {
		return apperrors.NewValidationError(name + " is required")
	}
	if !validation.NewStringValidation(value).WithMaxLength(maxLen).Validate() {
		return apperrors.NewValidationError(fmt.Sprintf("%s must be at most %d characters", name, maxLen))
	}
	return nil
}

func (s *SubmissionService) attachFile(ctx context.Context, submission *models.Submission, file *UploadedFile) error {
	if file == nil || file.Reader == nil {
		return apperrors.NewValidationError("file is required")
	}
	limit := s.config.MaxUploadSize
	if file.Size > limit {
		return apperrors.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file.Reader, limit+1))
	if err != nil {
		return fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > limit {
		return apperrors.ErrFileTooLarge
	}
	if len(data) == 0 {
		return apperrors.NewValidationError("file is empty")
	}

	mtype := mimetype.Detect(data)
	if !mtype.Is(MimePDF) && !mtype.Is(MimeDOCX) {
		s.logger.Warn().Str("detected", mtype.String()).Str("filename", file.Name).Msg("Rejected upload type")
		return apperrors.ErrUnsupportedFileType
	}

	info, err := s.files.SaveFile(ctx, bytes.NewReader(data), file.Name, mtype.String())
	if err != nil {
		return fmt.Errorf("failed to store uploaded file: %w", err)
	}

	submission.FileType = FileTypeFromName(file.Name)
	submission.FileName = file.Name
	submission.FileURL = info.URL
	submission.Content = fmt.Sprintf("[Fichier: %s]", file.Name)
	return nil
}

// MaxUploadSize is the largest accepted document in bytes
func (s *SubmissionService) MaxUploadSize() int64 {
	return s.config.MaxUploadSize
}

// FileTypeFromName returns pdf for names ending in .pdf and docx otherwise
func FileTypeFromName(name string) models.FileType {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return models.FileTypePDF
	}
	return models.FileTypeDOCX
}

// ConsultationURL returns the public page a submission is shared under
func (s *SubmissionService) ConsultationURL(id string) string {
	return strings.TrimRight(s.config.PublicBaseURL, "/") + "/view/" + id
}

// GetSubmission returns an active submission or ErrSubmissionNotFound
func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, apperrors.ErrSubmissionNotFound
	}
	if submission.ConsultationURL == "" {
		submission.ConsultationURL = s.ConsultationURL(submission.ID)
	}
	return submission, nil
}

// ListByOwner returns one page of the owner's active submissions, newest first
func (s *SubmissionService) ListByOwner(ctx context.Context, ownerID string, page, size int) ([]*models.Submission, dto.PaginationInfo, error) {
	if ownerID == "" {
		return nil, dto.PaginationInfo{}, apperrors.ErrPermissionDenied
	}

	all, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, dto.PaginationInfo{}, fmt.Errorf("failed to list submissions: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	for _, sub := range all {
		if sub.ConsultationURL == "" {
			sub.ConsultationURL = s.ConsultationURL(sub.ID)
		}
	}

	start, end := helpers.CalculateSliceIndices(page, size, len(all))
	return all[start:end], helpers.NewPaginationInfo(int64(len(all)), page, size), nil
}

// NormalizeEditCode trims and upper-cases a typed edit code
func NormalizeEditCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// VerifyEditCode reports whether code unlocks grading for the submission
func (s *SubmissionService) VerifyEditCode(ctx context.Context, id, code string) (bool, error) {
	code = NormalizeEditCode(code)
	if code == "" {
		return false, apperrors.NewValidationError("editCode is required")
	}
	if !codegen.IsEditCode(code) {
		s.logger.Debug().Str("submissionID", id).Msg("Malformed edit code rejected")
		return false, nil
	}

	ok, err := s.repo.VerifyEditCode(ctx, id, code)
	if err != nil {
		return false, fmt.Errorf("failed to verify edit code: %w", err)
	}
	if !ok {
		s.logger.Debug().Str("submissionID", id).Msg("Edit code rejected")
	}
	return ok, nil
}

// GradeSubmission records a correction. The edit code must verify and the
// grade must not be blank. Status and correction are written together.
func (s *SubmissionService) GradeSubmission(ctx context.Context, id, code, grade, appreciation string) (*models.Submission, error) {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return nil, apperrors.NewValidationError("grade is required")
	}

	if _, err := s.GetSubmission(ctx, id); err != nil {
		return nil, err
	}

	ok, err := s.VerifyEditCode(ctx, id, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidEditCode
	}

	status := models.StatusCorrected
	updated, err := s.repo.Update(ctx, id, models.SubmissionUpdate{
		Status: &status,
		Correction: &models.Correction{
			Grade:        grade,
			Appreciation: strings.TrimSpace(appreciation),
			CorrectedAt:  s.now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save correction: %w", err)
	}
	if !updated {
		return nil, apperrors.ErrSubmissionNotFound
	}

	s.logger.Info().Str("submissionID", id).Msg("Submission corrected")
	corrected, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.SubmissionCorrected(corrected)
	return corrected, nil
}

// DeleteSubmission removes a submission owned by userID together with its file
func (s *SubmissionService) DeleteSubmission(ctx context.Context, id, userID string) error {
	submission, err := s.GetSubmission(ctx, id)
	if err != nil {
		return err
	}
	if userID == "" || submission.StudentID != userID {
		return apperrors.NewForbiddenError("only the author can delete this submission")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	if submission.FileURL != "" {
		if err := s.files.DeleteFile(ctx, submission.FileURL); err != nil {
			s.logger.Warn().Err(err).Str("submissionID", id).Msg("Failed to delete submission file")
		}
	}

	s.notifier.SubmissionDeleted(id)
	s.logger.Info().Str("submissionID", id).Str("userID", userID).Msg("Submission deleted")
	return nil
}
