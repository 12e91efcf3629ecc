package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/middleware"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/service"
	"github.com/campuswork/marketplace/internal/utils"
)

// AuthHandler bundles dependencies for the account and session endpoints.
type AuthHandler struct {
	Secret    string
	AccessTTL time.Duration
	Users     *service.Directory
	Sessions  *service.Sessions
	Clock     clock.Clock
	Log       *zap.Logger
}

func NewAuthHandler(secret string, accessTTL time.Duration, users *service.Directory, sessions *service.Sessions, clk clock.Clock, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Secret: secret, AccessTTL: accessTTL, Users: users, Sessions: sessions, Clock: clk, Log: logger.OrNop(log)}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type roleReq struct {
	Role model.Role `json:"role"`
}
type profileReq struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type sessionResp struct {
	User       model.User `json:"user"`
	ActiveRole model.Role `json:"activeRole"`
}
type authResp struct {
	sessionResp
	Access utils.AccessToken `json:"access"`
}

func toSessionResp(s model.Session) sessionResp {
	return sessionResp{User: s.User, ActiveRole: s.ActiveRole}
}

// Register creates the account and signs it in straight away.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Register(ctx, req)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	resp, err := h.start(c, u)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login checks the credentials and opens a new session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	resp, err := h.start(c, u)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) start(c echo.Context, u model.User) (authResp, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Sessions.Start(ctx, u)
	if err != nil {
		return authResp{}, err
	}
	access, err := utils.NewAccessToken(h.Secret, u.ID, sess.ID, string(u.Role), h.AccessTTL, h.Clock.Now())
	if err != nil {
		_ = h.Sessions.End(ctx, sess.ID)
		return authResp{}, err
	}
	return authResp{sessionResp: toSessionResp(sess), Access: access}, nil
}

// Logout deletes the session the token points at. The token itself stays
// valid until expiry but no longer finds a session.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, ok := middleware.Session(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Sessions.End(ctx, sess.ID); err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me re-reads the user so balance and profile changes made elsewhere show up.
func (h *AuthHandler) Me(c echo.Context) error {
	return h.refreshed(c, http.StatusOK)
}

// SelectRole is the one-time role choice after registration.
func (h *AuthHandler) SelectRole(c echo.Context) error {
	var req roleReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if _, err := h.Users.SelectRole(ctx, currentUser(c), req.Role); err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return h.refreshed(c, http.StatusOK)
}

// UpdateProfile changes name and avatar.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	var req profileReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if _, err := h.Users.UpdateProfile(ctx, currentUser(c), req.Name, req.AvatarURL); err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return h.refreshed(c, http.StatusOK)
}

// SwitchRole flips a BOTH user between the client and freelancer dashboards.
func (h *AuthHandler) SwitchRole(c echo.Context) error {
	sess, _ := middleware.Session(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	next, err := h.Sessions.SwitchRole(ctx, sess.ID)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSessionResp(next))
}

func (h *AuthHandler) refreshed(c echo.Context, status int) error {
	sess, _ := middleware.Session(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	next, err := h.Sessions.Refresh(ctx, sess.ID)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(status, toSessionResp(next))
}
