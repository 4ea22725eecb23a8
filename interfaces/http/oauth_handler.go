package http

import (
	"net/http"
	"net/url"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IOAuthHandler interface {
	ListPlatforms(ctx *gin.Context)
	Authorize(ctx *gin.Context)
	Callback(ctx *gin.Context)
	RefreshConnection(ctx *gin.Context)
	ListConnections(ctx *gin.Context)
}

type OAuthHandler struct {
	oauthUsecase usecase.IOAuthUsecase
	frontendURL  string
}

// NewOAuthHandler builds the OAuth endpoints. When frontendURL is set the
// callback redirects there instead of answering with JSON.
func NewOAuthHandler(oauthUsecase usecase.IOAuthUsecase, frontendURL string) IOAuthHandler {
	return &OAuthHandler{oauthUsecase: oauthUsecase, frontendURL: frontendURL}
}

func (h *OAuthHandler) ListPlatforms(ctx *gin.Context) {
	configured := h.oauthUsecase.ListConfiguredPlatforms()
	if configured == nil {
		configured = []model.Platform{}
	}
	ctx.JSON(http.StatusOK, gin.H{
		"platforms": configured,
		"supported": model.AllPlatforms,
	})
}

func (h *OAuthHandler) Authorize(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	platform, err := model.ParsePlatform(ctx.Param("platform"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	authURL, err := h.oauthUsecase.GenerateAuthURL(ctx.Request.Context(), userID, platform, model.AuthOptions{
		InstanceURL: ctx.Query("instance"),
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.AuthURLResponse{Platform: platform, AuthURL: authURL})
}

// Callback is public: the browser arrives here from the platform's consent
// screen and the state token identifies the user.
func (h *OAuthHandler) Callback(ctx *gin.Context) {
	platform, err := model.ParsePlatform(ctx.Param("platform"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	if denied := ctx.Query("error"); denied != "" {
		logger.GetLogger().WithFields(map[string]interface{}{
			"platform": platform,
			"reason":   denied,
		}).Warn("Authorization denied by user or platform")
		h.finish(ctx, platform, http.StatusBadRequest, gin.H{"error": "authorization denied"}, denied)
		return
	}
	code, state := ctx.Query("code"), ctx.Query("state")
	if code == "" || state == "" {
		badRequest(ctx, "missing code or state")
		return
	}

	conn, err := h.oauthUsecase.HandleCallback(ctx.Request.Context(), code, state, platform)
	if err != nil {
		if h.frontendURL != "" {
			_, body := classifyError(err)
			logger.GetLogger().WithFields(map[string]interface{}{
				"platform": platform,
				"error":    err.Error(),
			}).Warn("OAuth callback failed")
			h.redirect(ctx, platform, body)
			return
		}
		writeError(ctx, err)
		return
	}
	h.finish(ctx, platform, http.StatusOK, dto.ConnectionResponse{Connection: conn.Connection, Profile: conn.Token}, "")
}

func (h *OAuthHandler) finish(ctx *gin.Context, platform model.Platform, status int, body interface{}, failure string) {
	if h.frontendURL != "" {
		h.redirect(ctx, platform, failure)
		return
	}
	ctx.JSON(status, body)
}

func (h *OAuthHandler) redirect(ctx *gin.Context, platform model.Platform, failure string) {
	target, err := url.Parse(h.frontendURL)
	if err != nil {
		writeError(ctx, err)
		return
	}
	q := target.Query()
	q.Set("platform", platform.String())
	if failure != "" {
		q.Set("status", "error")
		q.Set("error", failure)
	} else {
		q.Set("status", "connected")
	}
	target.RawQuery = q.Encode()
	ctx.Redirect(http.StatusFound, target.String())
}

func (h *OAuthHandler) RefreshConnection(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	connectionID := ctx.Param("connectionId")
	conns, err := h.oauthUsecase.ListConnections(ctx.Request.Context(), userID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	owned := false
	for _, c := range conns {
		if c.Connection.ID == connectionID {
			owned = true
			break
		}
	}
	if !owned {
		writeError(ctx, model.ErrConnectionNotFound)
		return
	}

	token, err := h.oauthUsecase.RefreshToken(ctx.Request.Context(), connectionID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"connectionId": connectionID, "token": token})
}

func (h *OAuthHandler) ListConnections(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	conns, err := h.oauthUsecase.ListConnections(ctx.Request.Context(), userID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if conns == nil {
		conns = []model.ConnectionWithToken{}
	}
	ctx.JSON(http.StatusOK, gin.H{"connections": conns})
}
