package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"credit-store/internal/audit"
	"credit-store/internal/auth"
	"credit-store/internal/catalog"
	"credit-store/internal/config"
	"credit-store/internal/orders"
	"credit-store/internal/rbac"
	"credit-store/internal/users"
	"credit-store/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeWallet implements WalletService over maps, mirroring the
// transition contract.
type fakeWallet struct {
	wallets map[string]wallet.Wallet
	entries map[string]wallet.LedgerEntry
	nextID  int
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		wallets: make(map[string]wallet.Wallet),
		entries: make(map[string]wallet.LedgerEntry),
	}
}

func (f *fakeWallet) addWallet(id, userID string, balance decimal.Decimal) {
	f.wallets[id] = wallet.Wallet{ID: id, UserID: userID, Currency: "USD", Balance: balance}
}

func (f *fakeWallet) addPending(id, walletID string, amount decimal.Decimal) {
	f.entries[id] = wallet.LedgerEntry{
		ID: id, WalletID: walletID, Type: wallet.EntryTypeTopup,
		Direction: wallet.DirectionCredit, Amount: amount,
		Status: wallet.StatusPending, CreatedAt: time.Now().UTC(),
	}
}

func (f *fakeWallet) CreatePendingTopup(_ context.Context, req wallet.CreateTopupRequest) (wallet.LedgerEntry, error) {
	if req.WalletID == "" || !req.Amount.IsPositive() {
		return wallet.LedgerEntry{}, wallet.ErrInvalidArgument
	}
	for _, e := range f.entries {
		if req.OpRef != "" && e.OpRef == req.OpRef {
			if e.WalletID == req.WalletID {
				return e, nil
			}
			return wallet.LedgerEntry{}, wallet.ErrConflict
		}
	}
	f.nextID++
	e := wallet.LedgerEntry{
		ID: "e" + strconv.Itoa(f.nextID), WalletID: req.WalletID,
		Type: wallet.EntryTypeTopup, Direction: wallet.DirectionCredit,
		Amount: req.Amount, Status: wallet.StatusPending, OpRef: req.OpRef,
		CreatedAt: time.Now().UTC(),
	}
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeWallet) Approve(_ context.Context, entryID, _ string) (wallet.LedgerEntry, error) {
	e, ok := f.entries[entryID]
	if !ok {
		return wallet.LedgerEntry{}, wallet.ErrNotFound
	}
	switch e.Status {
	case wallet.StatusApproved:
		return e, nil
	case wallet.StatusRejected:
		return wallet.LedgerEntry{}, wallet.ErrAlreadyFinalized
	}
	e.Status = wallet.StatusApproved
	w := f.wallets[e.WalletID]
	w.Balance = w.Balance.Add(e.Amount)
	f.wallets[e.WalletID] = w
	f.entries[entryID] = e
	return e, nil
}

func (f *fakeWallet) Reject(_ context.Context, entryID, reason string) (wallet.LedgerEntry, error) {
	e, ok := f.entries[entryID]
	if !ok {
		return wallet.LedgerEntry{}, wallet.ErrNotFound
	}
	if e.Status != wallet.StatusPending {
		return wallet.LedgerEntry{}, wallet.ErrAlreadyFinalized
	}
	e.Status = wallet.StatusRejected
	e.Note = reason
	f.entries[entryID] = e
	return e, nil
}

func (f *fakeWallet) AdminAdjust(_ context.Context, req wallet.AdminAdjustRequest) (wallet.LedgerEntry, error) {
	if req.WalletID == "" || req.Reason == "" || req.IdempotencyKey == "" || !req.Amount.IsPositive() {
		return wallet.LedgerEntry{}, wallet.ErrInvalidArgument
	}
	w, ok := f.wallets[req.WalletID]
	if !ok {
		return wallet.LedgerEntry{}, wallet.ErrNotFound
	}
	if req.Direction == wallet.DirectionCredit {
		w.Balance = w.Balance.Add(req.Amount)
	} else {
		w.Balance = w.Balance.Sub(req.Amount)
		if w.Balance.IsNegative() {
			w.Balance = decimal.Zero
		}
	}
	f.wallets[req.WalletID] = w
	e := wallet.LedgerEntry{ID: "adj-" + req.IdempotencyKey, WalletID: req.WalletID, Amount: req.Amount, Status: wallet.StatusApproved}
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeWallet) GetBalance(_ context.Context, userID, currency string) (wallet.Wallet, error) {
	for _, w := range f.wallets {
		if w.UserID == userID && w.Currency == currency {
			return w, nil
		}
	}
	return wallet.Wallet{}, wallet.ErrNotFound
}

func (f *fakeWallet) GetWallet(_ context.Context, walletID string) (wallet.Wallet, error) {
	w, ok := f.wallets[walletID]
	if !ok {
		return wallet.Wallet{}, wallet.ErrNotFound
	}
	return w, nil
}

func (f *fakeWallet) ListRecentTopups(_ context.Context, userID string, _ int) ([]wallet.LedgerEntry, error) {
	var out []wallet.LedgerEntry
	for _, e := range f.entries {
		if w, ok := f.wallets[e.WalletID]; ok && w.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeWallet) ListPendingTopups(_ context.Context, _ int) ([]wallet.LedgerEntry, error) {
	var out []wallet.LedgerEntry
	for _, e := range f.entries {
		if e.Status == wallet.StatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeOrders struct {
	placeErr error
	placed   []orders.Order
}

func (f *fakeOrders) Place(_ context.Context, u users.User, productID string, qty int, target string) (orders.Order, error) {
	if f.placeErr != nil {
		return orders.Order{}, f.placeErr
	}
	o := orders.Order{ID: "o1", UserID: u.ID, ProductID: productID, Qty: qty, Target: target, Status: orders.StatusSent, TotalPrice: dec("3.60")}
	f.placed = append(f.placed, o)
	return o, nil
}

func (f *fakeOrders) Get(_ context.Context, id string) (orders.Order, error) {
	return orders.Order{}, orders.ErrNotFound
}

func (f *fakeOrders) List(_ context.Context, _, _ int) ([]orders.Order, error) {
	return f.placed, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID string, _ int) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range f.placed {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Complete(_ context.Context, id string) (orders.Order, error) {
	return orders.Order{}, orders.ErrNotFound
}

func testHandlers(t *testing.T) (Handlers, *fakeWallet, *audit.MemoryRepo) {
	t.Helper()
	mgr, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	fw := newFakeWallet()
	auditRepo := audit.NewMemoryRepo()
	h := Handlers{
		Auth:          mgr,
		AdminAPIKey:   "bootstrap-key",
		GatewaySecret: "gw-secret",
		Wallet:        fw,
		Users:         users.NewService(users.NewMemoryRepo(), nil),
		Catalog:       catalog.NewService(catalog.NewMemoryRepo()),
		Orders:        &fakeOrders{},
		Audit:         audit.NewService(auditRepo),
	}
	return h, fw, auditRepo
}

func doJSON(r *gin.Engine, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func adminRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(h.Auth))
	{
		v1.GET("/topups/pending", rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleAdmin), h.ListPendingTopups)
		v1.POST("/topups/:id/approve", rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleAdmin), h.ApproveTopup)
		v1.POST("/topups/:id/reject", rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleAdmin), h.RejectTopup)
		v1.POST("/wallets/adjust", rbac.RequireAnyRole(rbac.RoleAdmin), h.AdjustWallet)
	}

	gw := r.Group("/gateway")
	gw.Use(h.RequireGatewaySecret())
	{
		gw.POST("/users", h.GatewayRegister)
		gw.POST("/orders", h.GatewayPlaceOrder)
	}
	return r
}

func login(t *testing.T, r *gin.Engine, role string) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/v1/auth/login", map[string]any{
		"admin_id": "a1", "role": role, "api_key": "bootstrap-key",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.AccessToken
}

func TestLogin_RejectsBadAPIKey(t *testing.T) {
	h, _, _ := testHandlers(t)
	r := adminRouter(h)

	w := doJSON(r, http.MethodPost, "/v1/auth/login", map[string]any{
		"admin_id": "a1", "role": rbac.RoleAdmin, "api_key": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLogin_RejectsUnknownRole(t *testing.T) {
	h, _, _ := testHandlers(t)
	r := adminRouter(h)

	w := doJSON(r, http.MethodPost, "/v1/auth/login", map[string]any{
		"admin_id": "a1", "role": "root", "api_key": "bootstrap-key",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestApproveTopup_EndToEnd(t *testing.T) {
	h, fw, auditRepo := testHandlers(t)
	fw.addWallet("w1", "u1", dec("0"))
	fw.addPending("e1", "w1", dec("10.00"))
	r := adminRouter(h)
	token := login(t, r, rbac.RoleOperator)

	w := doJSON(r, http.MethodPost, "/v1/topups/e1/approve", map[string]any{"note": "ok"},
		map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	got, _ := fw.GetWallet(context.Background(), "w1")
	if !got.Balance.Equal(dec("10.00")) {
		t.Fatalf("expected balance 10.00, got %s", got.Balance)
	}

	evs := auditRepo.Events()
	found := false
	for _, e := range evs {
		if e.Type == audit.EventTypeTopupApproved && e.EntryID == "e1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an approval audit event, got %+v", evs)
	}
}

func TestApproveTopup_RequiresAuth(t *testing.T) {
	h, fw, _ := testHandlers(t)
	fw.addWallet("w1", "u1", dec("0"))
	fw.addPending("e1", "w1", dec("10.00"))
	r := adminRouter(h)

	w := doJSON(r, http.MethodPost, "/v1/topups/e1/approve", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRejectTopup_RequiresReason(t *testing.T) {
	h, fw, _ := testHandlers(t)
	fw.addWallet("w1", "u1", dec("0"))
	fw.addPending("e1", "w1", dec("10.00"))
	r := adminRouter(h)
	token := login(t, r, rbac.RoleOperator)

	w := doJSON(r, http.MethodPost, "/v1/topups/e1/reject", map[string]any{},
		map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRejectAfterApprove_Conflicts(t *testing.T) {
	h, fw, _ := testHandlers(t)
	fw.addWallet("w1", "u1", dec("0"))
	fw.addPending("e1", "w1", dec("10.00"))
	r := adminRouter(h)
	token := login(t, r, rbac.RoleOperator)
	hdr := map[string]string{"Authorization": "Bearer " + token}

	if w := doJSON(r, http.MethodPost, "/v1/topups/e1/approve", nil, hdr); w.Code != http.StatusOK {
		t.Fatalf("approve failed: %d", w.Code)
	}
	w := doJSON(r, http.MethodPost, "/v1/topups/e1/reject", map[string]any{"reason": "late"}, hdr)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestAdjustWallet_OperatorForbidden(t *testing.T) {
	h, fw, _ := testHandlers(t)
	fw.addWallet("w1", "u1", dec("5.00"))
	r := adminRouter(h)
	token := login(t, r, rbac.RoleOperator)

	w := doJSON(r, http.MethodPost, "/v1/wallets/adjust", map[string]any{
		"wallet_id": "w1", "direction": "credit", "amount": "1.00",
		"reason": "promo", "idempotency_key": "k1",
	}, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator, got %d", w.Code)
	}
}

func TestGateway_RequiresSecret(t *testing.T) {
	h, _, _ := testHandlers(t)
	r := adminRouter(h)

	w := doJSON(r, http.MethodPost, "/gateway/users", map[string]any{"tg_id": 42, "name": "alice"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/gateway/users", map[string]any{"tg_id": 42, "name": "alice"},
		map[string]string{"X-Gateway-Secret": "gw-secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with secret, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGatewayPlaceOrder_InsufficientFunds(t *testing.T) {
	h, _, _ := testHandlers(t)
	h.Orders = &fakeOrders{placeErr: wallet.ErrInsufficientFunds}
	r := adminRouter(h)
	hdr := map[string]string{"X-Gateway-Secret": "gw-secret"}

	if w := doJSON(r, http.MethodPost, "/gateway/users", map[string]any{"tg_id": 42, "name": "alice"}, hdr); w.Code != http.StatusOK {
		t.Fatalf("register failed: %d", w.Code)
	}
	w := doJSON(r, http.MethodPost, "/gateway/orders", map[string]any{
		"tg_id": 42, "product_id": "p1", "qty": 1, "target": "player9",
	}, hdr)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}
