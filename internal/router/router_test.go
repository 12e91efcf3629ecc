package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campuswork/marketplace/internal/clock"
	"github.com/campuswork/marketplace/internal/config"
	"github.com/campuswork/marketplace/internal/handler"
	"github.com/campuswork/marketplace/internal/kv"
	"github.com/campuswork/marketplace/internal/middleware"
	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/queue"
	"github.com/campuswork/marketplace/internal/repository"
	"github.com/campuswork/marketplace/internal/service"
)

const testSecret = "router-test-secret"

type testAPI struct {
	t     *testing.T
	e     *echo.Echo
	clock *clock.Manual
}

// newTestAPI wires every route over an in-memory store. Sessions and
// tokens run on the wall clock; the booking side runs on a manual clock
// starting 2025-03-10 09:00 UTC.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := repository.NewStore(kv.NewMemory(), "test", nil)
	sys := clock.NewSystem()
	mc := clock.NewManual(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	users := service.NewDirectory(store, 4, nil)
	inbox := service.NewInbox(store, mc, nil)
	ledger := service.NewLedger(store, users, inbox, mc, queue.Nop{}, nil)
	wallet := service.NewWallet(store, users, inbox, mc, queue.Nop{}, nil)
	chat := service.NewChat(store, mc, nil)
	catalog := service.NewCatalog(store, nil)
	sessions := service.NewSessions(store, users, sys, time.Hour, nil)

	e := echo.New()
	auth := middleware.JWTAuth(testSecret, sessions)
	limiter := middleware.RateLimit(config.RateLimitConfig{}, nil, nil)

	RegisterRoutes(e, handler.NewHealthHandler(store, nil))
	RegisterAuth(e, handler.NewAuthHandler(testSecret, time.Hour, users, sessions, sys, nil), auth, limiter, limiter)
	cat := handler.NewCatalogHandler(catalog, nil)
	RegisterPublic(e, cat)
	RegisterAccount(e, handler.NewNotificationHandler(inbox, time.Second, nil), handler.NewChatHandler(chat, time.Second, nil), auth)
	RegisterBookings(e, handler.NewBookingHandler(ledger, nil), handler.NewWalletHandler(wallet, sessions, nil), auth)
	RegisterFreelancer(e, cat, auth)

	return &testAPI{t: t, e: e, clock: mc}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// expect fails unless rec has status and decodes its body into out.
func (a *testAPI) expect(rec *httptest.ResponseRecorder, status int, out interface{}) {
	a.t.Helper()
	if rec.Code != status {
		a.t.Fatalf("expected status %d, got %d (%s)", status, rec.Code, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
}

type authBody struct {
	User       model.User `json:"user"`
	ActiveRole model.Role `json:"activeRole"`
	Access     struct {
		Token string `json:"token"`
	} `json:"access"`
}

// signUp registers name, picks role (unless NONE) and returns the token
// and user.
func (a *testAPI) signUp(name string, role model.Role) (string, model.User) {
	a.t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@student.unsri.ac.id"
	var reg authBody
	a.expect(a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "Secret!pw", "confirmPassword": "Secret!pw",
	}), http.StatusCreated, &reg)
	if role != model.RoleNone {
		var me authBody
		a.expect(a.do(http.MethodPut, "/v1/me/role", reg.Access.Token, map[string]string{"role": string(role)}), http.StatusOK, &me)
		reg.User = me.User
	}
	return reg.Access.Token, reg.User
}

type bookingBody struct {
	model.Booking
	Overdue  bool `json:"overdue"`
	Reviewed bool `json:"reviewed"`
}

func TestHealth(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	token, user := api.signUp("Andi", model.RoleNone)
	if user.Role != model.RoleNone || user.Balance != 0 {
		t.Fatalf("expected fresh user, got %+v", user)
	}

	// a duplicate email is refused whatever the case
	api.expect(api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Other", "email": "ANDI@student.unsri.ac.id", "password": "Secret!pw", "confirmPassword": "Secret!pw",
	}), http.StatusConflict, nil)

	api.expect(api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Gmail", "email": "someone@gmail.com", "password": "Secret!pw", "confirmPassword": "Secret!pw",
	}), http.StatusBadRequest, nil)

	api.expect(api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "andi@student.unsri.ac.id", "password": "wrong",
	}), http.StatusUnauthorized, nil)

	var login authBody
	api.expect(api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "andi@student.unsri.ac.id", "password": "Secret!pw",
	}), http.StatusOK, &login)
	if login.User.ID != user.ID || login.Access.Token == "" {
		t.Fatalf("expected login as %s, got %+v", user.ID, login)
	}

	// no role yet: bookings are out of reach
	api.expect(api.do(http.MethodGet, "/v1/bookings", token, nil), http.StatusForbidden, nil)

	var me authBody
	api.expect(api.do(http.MethodPut, "/v1/me/role", token, map[string]string{"role": "BOTH"}), http.StatusOK, &me)
	if me.User.Role != model.RoleBoth || me.ActiveRole != model.RoleClient {
		t.Fatalf("expected BOTH on client lens, got %+v", me)
	}
	api.expect(api.do(http.MethodPut, "/v1/me/role", token, map[string]string{"role": "CLIENT"}), http.StatusConflict, nil)

	api.expect(api.do(http.MethodPost, "/v1/me/switch-role", token, nil), http.StatusOK, &me)
	if me.ActiveRole != model.RoleFreelancer {
		t.Fatalf("expected freelancer lens, got %s", me.ActiveRole)
	}

	api.expect(api.do(http.MethodPatch, "/v1/me", token, map[string]string{"name": "Andi P."}), http.StatusOK, &me)
	if me.User.Name != "Andi P." {
		t.Fatalf("expected renamed user, got %q", me.User.Name)
	}

	api.expect(api.do(http.MethodPost, "/v1/auth/logout", token, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodGet, "/v1/me", token, nil), http.StatusUnauthorized, nil)
	// the other session is untouched
	api.expect(api.do(http.MethodGet, "/v1/me", login.Access.Token, nil), http.StatusOK, nil)
}

func TestSwitchRole_SingleRoleRefused(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	token, _ := api.signUp("Citra", model.RoleClient)
	api.expect(api.do(http.MethodPost, "/v1/me/switch-role", token, nil), http.StatusForbidden, nil)
}

func TestCatalogRoutes(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	clientTok, _ := api.signUp("Andi", model.RoleClient)
	freeTok, _ := api.signUp("Sarah", model.RoleFreelancer)
	otherTok, _ := api.signUp("Budi", model.RoleFreelancer)

	api.expect(api.do(http.MethodPost, "/v1/services", clientTok, map[string]interface{}{
		"title": "Essay Proofreading", "category": "Academic", "price": 50000,
	}), http.StatusForbidden, nil)

	var svc model.Service
	api.expect(api.do(http.MethodPost, "/v1/services", freeTok, map[string]interface{}{
		"title": "Essay Proofreading", "description": "APA and MLA", "category": "Academic", "price": 50000,
	}), http.StatusCreated, &svc)
	if svc.ImageURL != service.DefaultServiceImage {
		t.Fatalf("expected default image, got %q", svc.ImageURL)
	}

	api.expect(api.do(http.MethodPost, "/v1/services", freeTok, map[string]interface{}{
		"title": "Logo", "category": "Cooking", "price": 10,
	}), http.StatusBadRequest, nil)

	var list struct {
		Items []model.Service `json:"items"`
	}
	api.expect(api.do(http.MethodGet, "/v1/services?q=mla&category=Academic", "", nil), http.StatusOK, &list)
	if len(list.Items) != 1 || list.Items[0].ID != svc.ID {
		t.Fatalf("expected the essay service, got %+v", list.Items)
	}
	api.expect(api.do(http.MethodGet, "/v1/services?category=Creative", "", nil), http.StatusOK, &list)
	if len(list.Items) != 0 {
		t.Fatalf("expected no creative services, got %+v", list.Items)
	}

	rec := api.do(http.MethodGet, "/v1/services/missing", "", nil)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"code":"empty_state"`) {
		t.Fatalf("expected empty state 404, got %d %s", rec.Code, rec.Body.String())
	}

	api.expect(api.do(http.MethodPut, "/v1/services/"+svc.ID, otherTok, map[string]interface{}{"price": 1}), http.StatusForbidden, nil)
	var updated model.Service
	api.expect(api.do(http.MethodPut, "/v1/services/"+svc.ID, freeTok, map[string]interface{}{"price": 75000}), http.StatusOK, &updated)
	if updated.Price != 75000 || updated.Title != svc.Title {
		t.Fatalf("expected price change only, got %+v", updated)
	}

	api.expect(api.do(http.MethodGet, "/v1/me/services", freeTok, nil), http.StatusOK, &list)
	if len(list.Items) != 1 {
		t.Fatalf("expected one own service, got %d", len(list.Items))
	}

	api.expect(api.do(http.MethodDelete, "/v1/services/"+svc.ID, freeTok, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodGet, "/v1/services/"+svc.ID, "", nil), http.StatusNotFound, nil)
}

func TestBookingRefundFlow(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	clientTok, _ := api.signUp("Andi", model.RoleClient)
	freeTok, _ := api.signUp("Sarah", model.RoleFreelancer)

	var svc model.Service
	api.expect(api.do(http.MethodPost, "/v1/services", freeTok, map[string]interface{}{
		"title": "Essay Proofreading", "category": "Academic", "price": 50000,
	}), http.StatusCreated, &svc)

	api.expect(api.do(http.MethodPost, "/v1/bookings", clientTok, map[string]string{
		"serviceId": svc.ID, "deadline": "2025-03-01",
	}), http.StatusBadRequest, nil)
	// due today is already overdue, so it could be refunded at once
	api.expect(api.do(http.MethodPost, "/v1/bookings", clientTok, map[string]string{
		"serviceId": svc.ID, "deadline": "2025-03-10",
	}), http.StatusBadRequest, nil)

	var b bookingBody
	api.expect(api.do(http.MethodPost, "/v1/bookings", clientTok, map[string]string{
		"serviceId": svc.ID, "deadline": "2025-03-20",
	}), http.StatusCreated, &b)
	if b.Status != model.BookingPending || b.Price != 50000 {
		t.Fatalf("expected pending booking at 50000, got %+v", b)
	}

	var list struct {
		Items []bookingBody `json:"items"`
	}
	api.expect(api.do(http.MethodGet, "/v1/bookings?tab=upcoming", freeTok, nil), http.StatusOK, &list)
	if len(list.Items) != 1 || list.Items[0].ID != b.ID {
		t.Fatalf("expected the booking on the freelancer's upcoming tab, got %+v", list.Items)
	}
	api.expect(api.do(http.MethodGet, "/v1/bookings?as=FREELANCER", clientTok, nil), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodGet, "/v1/bookings?tab=LATER", clientTok, nil), http.StatusBadRequest, nil)

	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/confirm", clientTok, nil), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/confirm", freeTok, nil), http.StatusOK, &b)
	if b.Status != model.BookingConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", b.Status)
	}

	// not overdue yet
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/refund", clientTok, nil), http.StatusUnprocessableEntity, nil)

	api.clock.Set(time.Date(2025, 3, 21, 8, 0, 0, 0, time.UTC))
	api.expect(api.do(http.MethodGet, "/v1/bookings/"+b.ID, clientTok, nil), http.StatusOK, &b)
	if !b.Overdue {
		t.Fatalf("expected overdue booking")
	}

	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/refund", clientTok, nil), http.StatusOK, &b)
	if b.Status != model.BookingCancelled {
		t.Fatalf("expected CANCELLED, got %s", b.Status)
	}
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/refund", clientTok, nil), http.StatusConflict, nil)

	var me authBody
	api.expect(api.do(http.MethodGet, "/v1/me", clientTok, nil), http.StatusOK, &me)
	if me.User.Balance != 50000 {
		t.Fatalf("expected balance 50000, got %d", me.User.Balance)
	}

	var history struct {
		Items []model.Transaction `json:"items"`
	}
	api.expect(api.do(http.MethodGet, "/v1/wallet/history", clientTok, nil), http.StatusOK, &history)
	if len(history.Items) != 1 || history.Items[0].Action != service.ActionRefund || history.Items[0].Amount != 50000 {
		t.Fatalf("expected one refund line, got %+v", history.Items)
	}

	api.expect(api.do(http.MethodPost, "/v1/wallet/withdraw", clientTok, map[string]interface{}{"amount": 999999}), http.StatusUnprocessableEntity, nil)
	var w struct {
		Balance int64 `json:"balance"`
	}
	api.expect(api.do(http.MethodPost, "/v1/wallet/withdraw", clientTok, map[string]interface{}{"amount": 20000, "destination": "BCA"}), http.StatusOK, &w)
	if w.Balance != 30000 {
		t.Fatalf("expected balance 30000, got %d", w.Balance)
	}

	var inbox struct {
		Items  []model.Notification `json:"items"`
		Unread int                  `json:"unread"`
	}
	api.expect(api.do(http.MethodGet, "/v1/notifications", clientTok, nil), http.StatusOK, &inbox)
	titles := make([]string, 0, len(inbox.Items))
	for _, n := range inbox.Items {
		titles = append(titles, n.Title)
	}
	want := []string{"Withdrawal Successful", "Refund Processed", "Booking Confirmed"}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, titles)
	}
	if inbox.Unread != 3 {
		t.Fatalf("expected 3 unread, got %d", inbox.Unread)
	}
	api.expect(api.do(http.MethodPost, "/v1/notifications/read-all", clientTok, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodGet, "/v1/notifications", clientTok, nil), http.StatusOK, &inbox)
	if inbox.Unread != 0 {
		t.Fatalf("expected 0 unread, got %d", inbox.Unread)
	}
}

func TestBookingReviewFlow(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	clientTok, _ := api.signUp("Andi", model.RoleClient)
	freeTok, _ := api.signUp("Sarah", model.RoleFreelancer)

	var svc model.Service
	api.expect(api.do(http.MethodPost, "/v1/services", freeTok, map[string]interface{}{
		"title": "Logo Design", "category": "Creative", "price": 100000,
	}), http.StatusCreated, &svc)
	var b bookingBody
	api.expect(api.do(http.MethodPost, "/v1/bookings", clientTok, map[string]string{
		"serviceId": svc.ID, "deadline": "2025-03-15",
	}), http.StatusCreated, &b)

	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/review", clientTok, map[string]interface{}{"rating": 5}), http.StatusUnprocessableEntity, nil)
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/complete", freeTok, nil), http.StatusConflict, nil)
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/confirm", freeTok, nil), http.StatusOK, nil)
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/complete", freeTok, nil), http.StatusOK, &b)
	if b.Status != model.BookingCompleted || b.Reviewed {
		t.Fatalf("expected completed and unreviewed, got %+v", b)
	}

	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/review", clientTok, map[string]interface{}{"rating": 9}), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/review", freeTok, map[string]interface{}{"rating": 5}), http.StatusForbidden, nil)
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/review", clientTok, map[string]interface{}{"rating": 4, "comment": "Great"}), http.StatusCreated, nil)
	api.expect(api.do(http.MethodPost, "/v1/bookings/"+b.ID+"/review", clientTok, map[string]interface{}{"rating": 4}), http.StatusConflict, nil)

	api.expect(api.do(http.MethodGet, "/v1/bookings/"+b.ID, clientTok, nil), http.StatusOK, &b)
	if !b.Reviewed {
		t.Fatalf("expected reviewed flag")
	}
	var got model.Service
	api.expect(api.do(http.MethodGet, "/v1/services/"+svc.ID, "", nil), http.StatusOK, &got)
	if got.Rating != 4 || got.ReviewCount != 1 {
		t.Fatalf("expected rating 4 from 1 review, got %v from %d", got.Rating, got.ReviewCount)
	}

	var list struct {
		Items []bookingBody `json:"items"`
	}
	api.expect(api.do(http.MethodGet, "/v1/bookings?tab=COMPLETED", clientTok, nil), http.StatusOK, &list)
	if len(list.Items) != 1 || !list.Items[0].Reviewed {
		t.Fatalf("expected one reviewed completed booking, got %+v", list.Items)
	}
}

func TestChatRoutes(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	clientTok, client := api.signUp("Andi", model.RoleClient)
	freeTok, free := api.signUp("Sarah", model.RoleNone)

	api.expect(api.do(http.MethodPost, "/v1/chats", clientTok, map[string]string{"userId": client.ID}), http.StatusBadRequest, nil)

	var thread model.ChatThread
	api.expect(api.do(http.MethodPost, "/v1/chats", clientTok, map[string]string{"userId": free.ID}), http.StatusOK, &thread)
	var again model.ChatThread
	api.expect(api.do(http.MethodPost, "/v1/chats", freeTok, map[string]string{"userId": client.ID}), http.StatusOK, &again)
	if again.ID != thread.ID {
		t.Fatalf("expected the same thread, got %s and %s", thread.ID, again.ID)
	}

	api.expect(api.do(http.MethodPost, "/v1/chats/"+thread.ID+"/messages", clientTok, map[string]string{"text": "  "}), http.StatusBadRequest, nil)
	api.expect(api.do(http.MethodPost, "/v1/chats/"+thread.ID+"/messages", clientTok, map[string]string{"text": "Halo, still available?"}), http.StatusCreated, nil)

	var list struct {
		Items  []model.ChatThread `json:"items"`
		Unread int                `json:"unread"`
	}
	api.expect(api.do(http.MethodGet, "/v1/chats?q=andi", freeTok, nil), http.StatusOK, &list)
	if len(list.Items) != 1 || list.Unread != 1 || list.Items[0].LastMessage != "Halo, still available?" {
		t.Fatalf("expected one unread thread, got %+v", list)
	}

	outsiderTok, _ := api.signUp("Budi", model.RoleNone)
	api.expect(api.do(http.MethodGet, "/v1/chats/"+thread.ID, outsiderTok, nil), http.StatusForbidden, nil)

	api.expect(api.do(http.MethodPost, "/v1/chats/"+thread.ID+"/read", freeTok, nil), http.StatusNoContent, nil)
	api.expect(api.do(http.MethodGet, "/v1/chats", freeTok, nil), http.StatusOK, &list)
	if list.Unread != 0 {
		t.Fatalf("expected 0 unread, got %d", list.Unread)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/v1/me"},
		{http.MethodGet, "/v1/notifications"},
		{http.MethodGet, "/v1/chats"},
		{http.MethodGet, "/v1/bookings"},
		{http.MethodPost, "/v1/services"},
		{http.MethodGet, "/v1/wallet/history"},
	}
	for _, p := range paths {
		rec := api.do(p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", p.method, p.path, rec.Code)
		}
	}
}
