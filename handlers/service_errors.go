package handlers

import (
	"net/http"

	"github.com/upb/campusiq-portal/services"
	"github.com/upb/campusiq-portal/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	err = services.Translate(err)
	details := services.GetErrorDetails(err)

	var writeErr error
	switch {
	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, "Validation failed", details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteError(w, http.StatusUnauthorized, "Authentication failed", details)

	case services.IsClientError(err):
		// the API's own rejection is passed through unchanged
		writeErr = utils.WriteError(w, services.GetErrorStatus(err), http.StatusText(services.GetErrorStatus(err)), nil)

	case services.IsExternalError(err):
		logger.Warn("upstream failure", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, "CampusIQ API unavailable")

	case services.IsUnavailableError(err):
		writeErr = utils.WriteError(w, http.StatusServiceUnavailable, "Request did not complete in time", nil)

	default:
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]any, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
