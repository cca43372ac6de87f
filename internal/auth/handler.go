package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/apperr"
	"github.com/yourusername/book-catalog/internal/logging"
)

// Handler は /api/register, /api/login, /api/logout, /api/me のハンドラーです。
type Handler struct {
	manager *Manager
	guard   *Guard
	cookie  sessions.Options
	log     logging.Logger
}

// NewHandler は認証ハンドラーを作成します。cookie はログイン時に発行する Cookie の属性です。
func NewHandler(manager *Manager, guard *Guard, cookie sessions.Options, log logging.Logger) *Handler {
	return &Handler{manager: manager, guard: guard, cookie: cookie, log: log}
}

// RegisterRoutes はルートを登録します。
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.GET("/me", h.guard.OptionalIdentity(), h.Me)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register は /api/register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.log, apperr.Validation(MsgNoData))
		return
	}

	if err := h.manager.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		apperr.Respond(c, h.log, err)
		return
	}

	h.log.Info(c.Request.Context(), "user registered", "username", req.Username)
	c.JSON(http.StatusCreated, gin.H{"message": MsgRegistered})
}

// Login は /api/login のハンドラーです。
// 成功するとセッション Cookie を設定し、アクセストークンを返します。
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.log, apperr.Validation(MsgCredentialsRequired))
		return
	}

	login, err := h.manager.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperr.Respond(c, h.log, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionKeyID, login.Session.ID)
	session.Options(h.cookie)
	if err := session.Save(); err != nil {
		if logoutErr := h.manager.Logout(c.Request.Context(), login.Session.ID); logoutErr != nil {
			h.log.Warn(c.Request.Context(), "failed to discard session after save error", "error", logoutErr.Error())
		}
		apperr.Respond(c, h.log, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    MsgLoggedIn,
		"username":   login.Username,
		"token":      login.Token,
		"expires_at": login.ExpiresAt,
	})
}

// Logout は /api/logout のハンドラーです。サーバー側のセッションを削除し、Cookie を破棄します。
func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if id, _ := session.Get(sessionKeyID).(string); id != "" {
		if err := h.manager.Logout(c.Request.Context(), id); err != nil {
			h.log.Error(c.Request.Context(), "logout failed", "error", err.Error())
		}
	}

	session.Clear()
	opts := h.cookie
	opts.MaxAge = -1
	session.Options(opts)
	if err := session.Save(); err != nil {
		apperr.Respond(c, h.log, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": MsgLoggedOut})
}

// Me は /api/me のハンドラーです。未ログインの場合は username に null を返します。
func (h *Handler) Me(c *gin.Context) {
	if username, ok := CurrentUser(c); ok {
		c.JSON(http.StatusOK, gin.H{"username": username})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": nil})
}
