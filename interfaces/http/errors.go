package http

import (
	"errors"
	"net/http"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

const internalErrorMessage = "internal server error"

type errorStatus struct {
	target error
	status int
	// public replaces err.Error() in the response body when set.
	public string
}

var errorStatuses = []errorStatus{
	{target: model.ErrUnsupportedPlatform, status: http.StatusBadRequest},
	{target: model.ErrPlatformNotConfigured, status: http.StatusBadRequest},
	{target: model.ErrInvalidInstanceURL, status: http.StatusBadRequest},
	{target: model.ErrNoPlatforms, status: http.StatusBadRequest},
	{target: model.ErrScheduleInPast, status: http.StatusBadRequest},
	{target: model.ErrInvalidOrExpiredState, status: http.StatusBadRequest},
	{target: model.ErrPostNotFound, status: http.StatusNotFound},
	{target: model.ErrJobNotFound, status: http.StatusNotFound},
	{target: model.ErrConnectionNotFound, status: http.StatusNotFound},
	{target: model.ErrJobInFlight, status: http.StatusConflict},
	{target: model.ErrJobBackingOff, status: http.StatusConflict},
	{target: model.ErrJobFinished, status: http.StatusConflict},
	{target: model.ErrInvalidPostTransition, status: http.StatusConflict},
	{target: model.ErrNoRefreshToken, status: http.StatusConflict, public: "reconnect required"},
	{target: model.ErrReconnectRequired, status: http.StatusConflict, public: "reconnect required"},
	{target: model.ErrTokenExchangeFailed, status: http.StatusBadGateway, public: "token exchange failed"},
	{target: model.ErrTokenRefreshFailed, status: http.StatusBadGateway, public: "token refresh failed"},
	{target: model.ErrProfileFetchFailed, status: http.StatusBadGateway, public: "profile fetch failed"},
	{target: model.ErrProfileFetchNotImplemented, status: http.StatusNotImplemented},
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and answered with a generic 500.
func writeError(ctx *gin.Context, err error) {
	status, body := classifyError(err)
	entry := logger.GetLogger().WithFields(map[string]interface{}{
		"path":    ctx.FullPath(),
		"status":  status,
		"user_id": ctx.GetString("user_id"),
		"error":   err.Error(),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": body})
}

func classifyError(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.target) {
			if e.public != "" {
				return e.status, e.public
			}
			return e.status, err.Error()
		}
	}
	return http.StatusInternalServerError, internalErrorMessage
}

func badRequest(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

func currentUser(ctx *gin.Context) (string, bool) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return "", false
	}
	return userID, true
}
