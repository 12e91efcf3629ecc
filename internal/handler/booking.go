package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/middleware"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/service"
)

// BookingHandler exposes the booking ledger.
type BookingHandler struct {
	Ledger *service.Ledger
	Log    *zap.Logger
}

func NewBookingHandler(l *service.Ledger, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Ledger: l, Log: logger.OrNop(log)}
}

type createBookingReq struct {
	ServiceID string `json:"serviceId"`
	Deadline  string `json:"deadline"`
}
type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// bookingView adds the flags the dashboards render next to a booking.
type bookingView struct {
	model.Booking
	Overdue  bool `json:"overdue"`
	Reviewed bool `json:"reviewed"`
}

func (h *BookingHandler) view(ctx context.Context, b model.Booking) (bookingView, error) {
	v := bookingView{Booking: b, Overdue: b.Overdue(h.Ledger.Now())}
	if b.Status == model.BookingCompleted {
		reviewed, err := h.Ledger.Reviewed(ctx, b.ID)
		if err != nil {
			return bookingView{}, err
		}
		v.Reviewed = reviewed
	}
	return v, nil
}

// List returns the caller's bookings on one tab. ?as= picks the side of
// the booking to list and defaults to the session's active role.
func (h *BookingHandler) List(c echo.Context) error {
	tab := model.BookingTab(strings.ToUpper(strings.TrimSpace(c.QueryParam("tab"))))
	if tab == "" {
		tab = model.TabUpcoming
	}
	lens := middleware.ActiveRole(c)
	if as := strings.ToUpper(strings.TrimSpace(c.QueryParam("as"))); as != "" {
		lens = model.Role(as)
	}
	role, _ := c.Get(middleware.KeyRole).(model.Role)
	switch lens {
	case model.RoleClient:
		if !role.CanHire() {
			return writeError(c, http.StatusForbidden, codeForbidden, "role cannot hire")
		}
	case model.RoleFreelancer:
		if !role.CanFreelance() {
			return writeError(c, http.StatusForbidden, codeForbidden, "role cannot freelance")
		}
	default:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "must be CLIENT or FREELANCER", Code: codeValidation, Field: "as"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Ledger.ListFor(ctx, currentUser(c), lens, tab)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		v, err := h.view(ctx, b)
		if err != nil {
			return writeServiceError(c, h.Log, err)
		}
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get returns one booking to either party.
func (h *BookingHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Ledger.Get(ctx, currentUser(c), c.Param("id"))
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	v, err := h.view(ctx, b)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Create books a service for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Ledger.Create(ctx, currentUser(c), strings.TrimSpace(req.ServiceID), req.Deadline)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	v, err := h.view(ctx, b)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, v)
}

type transitionFunc func(ctx context.Context, actorID, bookingID string) (model.Booking, error)

// Transition returns the handler for one lifecycle action.
func (h *BookingHandler) Transition(action string) echo.HandlerFunc {
	var fn transitionFunc
	switch action {
	case "confirm":
		fn = h.Ledger.Confirm
	case "reject":
		fn = h.Ledger.Reject
	case "cancel":
		fn = h.Ledger.CancelByClient
	case "complete":
		fn = h.Ledger.Complete
	case "refund":
		fn = h.Ledger.Refund
	default:
		panic("unknown booking action " + action)
	}
	return func(c echo.Context) error {
		ctx, cancel := requestContext(c)
		defer cancel()
		b, err := fn(ctx, currentUser(c), c.Param("id"))
		if err != nil {
			return writeServiceError(c, h.Log, err)
		}
		v, err := h.view(ctx, b)
		if err != nil {
			return writeServiceError(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, v)
	}
}

// Review rates a completed booking.
func (h *BookingHandler) Review(c echo.Context) error {
	var req reviewReq
	if !bind(c, &req) {
		return nil
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.Ledger.Review(ctx, currentUser(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		return writeServiceError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// BookingActions lists the lifecycle actions Transition understands.
var BookingActions = []string{"confirm", "reject", "cancel", "complete", "refund"}
