package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"credit-store/internal/auth"
	"credit-store/internal/audit"
	"credit-store/internal/catalog"
	"credit-store/internal/convo"
	"credit-store/internal/notify"
	"credit-store/internal/orders"
	"credit-store/internal/rbac"
	"credit-store/internal/reporting"
	"credit-store/internal/users"
	"credit-store/internal/wallet"

	"github.com/gin-gonic/gin"
)

// WalletService is the slice of the wallet service the HTTP layer uses.
// Balance mutation happens only through the transition methods here;
// there is deliberately no way to edit an entry's fields directly.
type WalletService interface {
	CreatePendingTopup(ctx context.Context, req wallet.CreateTopupRequest) (wallet.LedgerEntry, error)
	Approve(ctx context.Context, entryID, note string) (wallet.LedgerEntry, error)
	Reject(ctx context.Context, entryID, reason string) (wallet.LedgerEntry, error)
	AdminAdjust(ctx context.Context, req wallet.AdminAdjustRequest) (wallet.LedgerEntry, error)
	GetBalance(ctx context.Context, userID, currency string) (wallet.Wallet, error)
	GetWallet(ctx context.Context, walletID string) (wallet.Wallet, error)
	ListRecentTopups(ctx context.Context, userID string, limit int) ([]wallet.LedgerEntry, error)
	ListPendingTopups(ctx context.Context, limit int) ([]wallet.LedgerEntry, error)
}

// OrderService is the slice of the order service the HTTP layer uses.
type OrderService interface {
	Place(ctx context.Context, user users.User, productID string, qty int, target string) (orders.Order, error)
	Get(ctx context.Context, id string) (orders.Order, error)
	List(ctx context.Context, limit, offset int) ([]orders.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]orders.Order, error)
	Complete(ctx context.Context, id string) (orders.Order, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return
// JSON.
type Handlers struct {
	Auth *auth.Manager

	// AdminAPIKey is the bootstrap credential for login. Empty disables
	// the endpoint.
	AdminAPIKey string

	// GatewaySecret authenticates the bot process on /gateway routes.
	GatewaySecret string

	Wallet  WalletService
	Users   *users.Service
	Catalog *catalog.Service
	Orders  OrderService
	Convo   *convo.Service
	Stats   *reporting.Service
	Audit   *audit.Service
	Notify  notify.Notifier
}

// respondError maps service errors onto HTTP statuses. Unrecognized
// errors become opaque 500s; details stay in the logs.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, wallet.ErrConflict),
		errors.Is(err, users.ErrConflict),
		errors.Is(err, catalog.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, wallet.ErrAlreadyFinalized):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "already finalized"})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient funds"})
	case errors.Is(err, users.ErrBlocked):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user blocked"})
	case errors.Is(err, orders.ErrProviderFailure):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInvalidArgument),
		errors.Is(err, users.ErrInvalidArgument),
		errors.Is(err, catalog.ErrInvalidArgument),
		errors.Is(err, orders.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Auth ---

type loginRequest struct {
	AdminID string `json:"admin_id"`
	Role    string `json:"role"`
	APIKey  string `json:"api_key"`
}

// Login issues a JWT token pair after validating the bootstrap API key.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil || h.AdminAPIKey == "" {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "login not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AdminID == "" || !rbac.Valid(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "admin_id and a valid role are required"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.AdminAPIKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), req.AdminID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	if h.Audit != nil {
		_ = h.Audit.Append(c.Request.Context(), audit.Event{
			Type:         audit.EventTypeAdminLogin,
			ActorAdminID: req.AdminID,
			ActorRole:    req.Role,
			IPAddress:    c.ClientIP(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// RequireGatewaySecret authenticates the bot process. The bot is the
// only caller of /gateway routes and holds a shared secret.
func (h Handlers) RequireGatewaySecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Gateway-Secret")
		if h.GatewaySecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.GatewaySecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func actor(c *gin.Context) (id, role string) {
	id, _ = auth.AdminID(c.Request.Context())
	role, _ = auth.Role(c.Request.Context())
	return id, role
}

// notifyOwner sends a best-effort message to the owner of a wallet.
func (h Handlers) notifyOwner(ctx context.Context, walletID, text string) {
	if h.Notify == nil || h.Users == nil {
		return
	}
	w, err := h.Wallet.GetWallet(ctx, walletID)
	if err != nil {
		return
	}
	u, err := h.Users.Get(ctx, w.UserID)
	if err != nil {
		return
	}
	_ = h.Notify.Send(ctx, u.TgID, text)
}
