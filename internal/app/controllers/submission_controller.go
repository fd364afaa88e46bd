package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/app/models/dto"
	"github.com/yigit/submity/internal/app/services"
	"github.com/yigit/submity/internal/middleware"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/helpers"
)

// room for the form fields and multipart framing around the document
const multipartOverhead = 1 << 20

// SubmissionController handles submission endpoints
type SubmissionController struct {
	submissionService *services.SubmissionService
	logger            zerolog.Logger
}

// NewSubmissionController creates a new SubmissionController
func NewSubmissionController(submissionService *services.SubmissionService, logger zerolog.Logger) *SubmissionController {
	return &SubmissionController{
		submissionService: submissionService,
		logger:            logger,
	}
}

// CreateSubmission submits text or a document
// @Summary Submit work
// @Description Text submissions are sent as JSON. File submissions are sent as multipart/form-data with title, studentName and file (PDF or DOCX, 10 MiB max).
// @Description The response carries the consultation URL and the edit code needed for grading.
// @Tags submissions
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTextSubmissionRequest false "Text submission"
// @Param title formData string false "Title (multipart)"
// @Param studentName formData string false "Student name (multipart)"
// @Param file formData file false "PDF or DOCX document (multipart)"
// @Success 201 {object} dto.APIResponse{data=dto.OwnedSubmissionResponse} "Submission created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 413 {object} dto.APIResponse "File too large"
// @Failure 415 {object} dto.APIResponse "Unsupported file type"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /submissions [post]
func (c *SubmissionController) CreateSubmission(ctx *gin.Context) {
	input := services.CreateSubmissionInput{StudentID: middleware.CurrentUserID(ctx)}

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		bodyLimit := c.submissionService.MaxUploadSize() + multipartOverhead
		if ctx.Request.ContentLength > bodyLimit {
			middleware.HandleAPIError(ctx, apperrors.ErrFileTooLarge)
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, bodyLimit)

		input.ContentType = models.ContentTypeFile
		input.Title = ctx.PostForm("title")
		input.StudentName = ctx.PostForm("studentName")

		fileHeader, err := ctx.FormFile("file")
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.logger.Warn().Int64("limit", maxBytesErr.Limit).Msg("Upload body over the limit")
			middleware.HandleAPIError(ctx, apperrors.ErrFileTooLarge)
			return
		}
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "file is required").WithField("file")
			ctx.JSON(http.StatusBadRequest, dto.APIResponse{Error: errorDetail})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
			middleware.HandleAPIError(ctx, err)
			return
		}
		defer file.Close()

		input.File = &services.UploadedFile{
			Name:   fileHeader.Filename,
			Size:   fileHeader.Size,
			Reader: file,
		}
	} else {
		var req dto.CreateTextSubmissionRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.APIResponse{Error: dto.HandleValidationError(err)})
			return
		}
		input.ContentType = models.ContentTypeText
		input.Title = req.Title
		input.StudentName = req.StudentName
		input.Content = req.Content
	}

	submission, err := c.submissionService.Submit(ctx.Request.Context(), input)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create submission")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: dto.NewOwnedSubmissionResponse(submission)})
}

// ListMySubmissions returns the caller's active submissions
// @Summary Dashboard
// @Description Lists the authenticated student's active submissions, newest first
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.SubmissionListResponse} "Submissions"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /submissions [get]
func (c *SubmissionController) ListMySubmissions(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)

	submissions, pagination, err := c.submissionService.ListByOwner(ctx.Request.Context(), middleware.CurrentUserID(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	items := make([]dto.OwnedSubmissionResponse, 0, len(submissions))
	for _, s := range submissions {
		items = append(items, dto.NewOwnedSubmissionResponse(s))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.SubmissionListResponse{
		Submissions: items,
		Pagination:  pagination,
	}})
}

// GetSubmission returns the public view of a submission
// @Summary Consult a submission
// @Description Public view used by the consultation link. The edit code is never included.
// @Tags submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} dto.APIResponse{data=dto.SubmissionResponse} "Submission"
// @Failure 404 {object} dto.APIResponse "Submission not found or expired"
// @Router /submissions/{id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	submission, err := c.submissionService.GetSubmission(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.NewSubmissionResponse(submission)})
}

// VerifyEditCode checks an edit code before grading
// @Summary Verify edit code
// @Description Case and surrounding spaces are ignored
// @Tags submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param request body dto.VerifyEditCodeRequest true "Edit code"
// @Success 200 {object} dto.APIResponse{data=dto.VerifyEditCodeResponse} "Code accepted"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Invalid edit code"
// @Failure 404 {object} dto.APIResponse "Submission not found"
// @Router /submissions/{id}/verify [post]
func (c *SubmissionController) VerifyEditCode(ctx *gin.Context) {
	var req dto.VerifyEditCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{Error: dto.HandleValidationError(err)})
		return
	}

	id := ctx.Param("id")
	if _, err := c.submissionService.GetSubmission(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ok, err := c.submissionService.VerifyEditCode(ctx.Request.Context(), id, req.EditCode)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if !ok {
		ctx.JSON(http.StatusForbidden, dto.APIResponse{
			Data:  dto.VerifyEditCodeResponse{Valid: false},
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidEditCode, "Invalid edit code"),
		})
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.VerifyEditCodeResponse{Valid: true}})
}

// GradeSubmission records the teacher's correction
// @Summary Grade a submission
// @Description Requires the edit code. Grading again replaces the previous correction.
// @Tags submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param request body dto.CorrectionRequest true "Correction"
// @Success 200 {object} dto.APIResponse{data=dto.SubmissionResponse} "Corrected submission"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Invalid edit code"
// @Failure 404 {object} dto.APIResponse "Submission not found"
// @Router /submissions/{id}/correction [post]
func (c *SubmissionController) GradeSubmission(ctx *gin.Context) {
	var req dto.CorrectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{Error: dto.HandleValidationError(err)})
		return
	}

	submission, err := c.submissionService.GradeSubmission(ctx.Request.Context(), ctx.Param("id"), req.EditCode, req.Grade, req.Appreciation)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.NewSubmissionResponse(submission)})
}

// DeleteSubmission deletes one of the caller's submissions
// @Summary Delete a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Deleted"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Not the author"
// @Failure 404 {object} dto.APIResponse "Submission not found"
// @Router /submissions/{id} [delete]
func (c *SubmissionController) DeleteSubmission(ctx *gin.Context) {
	if err := c.submissionService.DeleteSubmission(ctx.Request.Context(), ctx.Param("id"), middleware.CurrentUserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.SuccessResponse{Message: "Submission deleted"}})
}
