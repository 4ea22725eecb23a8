package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Auth verifies an HS256 bearer token and stores the caller in "user_id".
// Browsers cannot set headers on EventSource, so the access_token query
// parameter is accepted as a fallback.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := bearerToken(ctx)
		if raw == "" || secretKey == "" {
			unauthorized(ctx, "Unauthorized")
			return
		}
		userClaims, token, err := getClaim(raw, secretKey)
		if err != nil || token == nil || !token.Valid {
			unauthorized(ctx, reason(err))
			return
		}
		userID := userClaims.UserID()
		if userID == "" {
			unauthorized(ctx, "Token has no subject")
			return
		}
		ctx.Set("user_id", userID)
		ctx.Set("user_name", userClaims.UserName)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	authorization := ctx.Request.Header.Get("Authorization")
	if authorization != "" {
		auth := strings.SplitN(authorization, " ", 2)
		if len(auth) != 2 || !strings.EqualFold(auth[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(auth[1])
	}
	return ctx.Query("access_token")
}

func unauthorized(ctx *gin.Context, message string) {
	logger.GetLogger().WithFields(map[string]interface{}{
		"path":   ctx.Request.URL.Path,
		"reason": message,
	}).Warn("Rejected unauthenticated request")
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.Res{
		ResponseCode:    "401",
		ResponseMessage: message,
	})
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "That's not even a token"
		case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return "Timing is everything"
		}
	}
	return "Unauthorized"
}

func getClaim(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(raw, &userClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	return userClaims, token, err
}
