package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/submity/internal/app/models/dto"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/logger"
)

// HandleAPIError maps an application error to a status code and error body
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorResponse(err)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}

	c.JSON(status, dto.APIResponse{Error: detail})
}

// AbortWithAPIError writes the error response and stops the handler chain
func AbortWithAPIError(c *gin.Context, err error) {
	HandleAPIError(c, err)
	c.Abort()
}

func errorResponse(err error) (int, *dto.ErrorDetail) {
	message := func(fallback string) string {
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			return custom.Message
		}
		return fallback
	}

	switch {
	case errors.Is(err, apperrors.ErrSubmissionNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Submission not found")
	case errors.Is(err, apperrors.ErrResourceNotFound), errors.Is(err, apperrors.ErrUserNotFound):
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, message("Resource not found"))
	case errors.Is(err, apperrors.ErrInvalidEditCode):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeInvalidEditCode, "Invalid edit code")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, message("Permission denied"))
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeAccountNotFound, "No account found with this email")
	case errors.Is(err, apperrors.ErrIncorrectPassword):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeIncorrectPassword, "Incorrect password")
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "Session not found or closed")
	case errors.Is(err, apperrors.ErrInvalidEmail):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidEmail, "Email format is invalid").WithField("email")
	case errors.Is(err, apperrors.ErrInvalidPassword):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidPassword, err.Error()).WithField("password")
	case errors.Is(err, apperrors.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType, dto.NewErrorDetail(dto.ErrorCodeUnsupportedFileType, "Unsupported file type, use PDF or DOCX").WithField("file")
	case errors.Is(err, apperrors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, dto.NewErrorDetail(dto.ErrorCodeFileTooLarge, "File is too large").WithField("file")
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message("Validation failed"))
	case errors.Is(err, apperrors.ErrEmailAlreadyExists), errors.Is(err, apperrors.ErrResourceAlreadyExists):
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Email already exists").WithField("email")
	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
