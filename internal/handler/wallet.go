package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/middleware"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/service"
)

// WalletHandler serves withdrawals and the transaction history.
type WalletHandler struct {
	Wallet   *service.Wallet
	Sessions *service.Sessions
	Log      *zap.Logger
}

func NewWalletHandler(w *service.Wallet, sessions *service.Sessions, log *zap.Logger) *WalletHandler {
	return &WalletHandler{Wallet: w, Sessions: sessions, Log: logger.OrNop(log)}
}

type withdrawReq struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}
type withdrawResp struct {
	Transaction model.Transaction `json:"transaction"`
	Balance     int64             `json:"balance"`
}

// Withdraw moves money out of the caller's balance. The session is
// refreshed so the next /me shows the new balance.
func (h *WalletHandler) Withdraw(c echo.Context) error {
	var req withdrawReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	trx, u, err := h.Wallet.Withdraw(ctx, currentUser(c), req.Amount, req.Destination)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	if sess, ok := middleware.Session(c); ok {
		if _, err := h.Sessions.Refresh(ctx, sess.ID); err != nil {
			h.Log.Warn("session refresh after withdrawal failed", zap.String("sid", sess.ID), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, withdrawResp{Transaction: trx, Balance: u.Balance})
}

// History lists the caller's wallet lines, newest first.
func (h *WalletHandler) History(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.Wallet.History(ctx, currentUser(c))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
