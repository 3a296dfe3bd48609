package respond

import (
	"github.com/gin-gonic/gin"

	"lexease-backend/internal/shared/telemetry"
)

// Error codes shared across handlers.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "NOT_FOUND"
	CodeUnsupportedFormat  = "UNSUPPORTED_FILE_FORMAT"
	CodeExtractionFailed   = "EXTRACTION_FAILED"
	CodeTemplateNotFound   = "TEMPLATE_NOT_FOUND"
	CodeGenerationFailed   = "GENERATION_FAILED"
	CodeAnalysisInProgress = "ANALYSIS_IN_PROGRESS"
	CodeStorage            = "STORAGE_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs and sends a standardized error response, aborting the chain.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if documentID := c.GetString("documentId"); documentID != "" {
		fields["document_id"] = documentID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}
