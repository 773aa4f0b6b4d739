package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"credit-store/internal/convo"
	"credit-store/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Gateway handlers serve the bot process. They are keyed by Telegram id
// because that is all the bot knows about a user.

type registerRequest struct {
	TgID    int64  `json:"tg_id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

func (h Handlers) GatewayRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.RegisterOrFetch(c.Request.Context(), req.TgID, req.Name, req.Country)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) gatewayUser(c *gin.Context) (userID string, tgID int64, ok bool) {
	tgID, err := strconv.ParseInt(c.Param("tg_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid tg_id"})
		return "", 0, false
	}
	u, err := h.Users.RequireActive(c.Request.Context(), tgID)
	if err != nil {
		respondError(c, err)
		return "", 0, false
	}
	return u.ID, tgID, true
}

func (h Handlers) GatewayBalance(c *gin.Context) {
	userID, _, ok := h.gatewayUser(c)
	if !ok {
		return
	}
	w, err := h.Wallet.GetBalance(c.Request.Context(), userID, "USD")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": w.Balance, "currency": w.Currency})
}

type gatewayTopupRequest struct {
	TgID     int64  `json:"tg_id"`
	MethodID string `json:"method_id"`
	Amount   string `json:"amount"`
	OpRef    string `json:"op_ref,omitempty"`
	Note     string `json:"note,omitempty"`
}

func (h Handlers) GatewayCreateTopup(c *gin.Context) {
	var req gatewayTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.RequireActive(c.Request.Context(), req.TgID)
	if err != nil {
		respondError(c, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	w, err := h.Wallet.GetBalance(c.Request.Context(), u.ID, "USD")
	if err != nil {
		respondError(c, err)
		return
	}
	e, err := h.Wallet.CreatePendingTopup(c.Request.Context(), wallet.CreateTopupRequest{
		WalletID: w.ID,
		MethodID: req.MethodID,
		Amount:   amount,
		OpRef:    req.OpRef,
		Note:     req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h Handlers) GatewayListTopups(c *gin.Context) {
	userID, _, ok := h.gatewayUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	list, err := h.Wallet.ListRecentTopups(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topups": list})
}

type gatewayOrderRequest struct {
	TgID      int64  `json:"tg_id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Target    string `json:"target"`
}

func (h Handlers) GatewayPlaceOrder(c *gin.Context) {
	var req gatewayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.RequireActive(c.Request.Context(), req.TgID)
	if err != nil {
		respondError(c, err)
		return
	}

	o, err := h.Orders.Place(c.Request.Context(), u, req.ProductID, req.Qty, req.Target)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.Notify != nil {
		_ = h.Notify.Send(c.Request.Context(), u.TgID,
			fmt.Sprintf("Order %s placed: %s x%d for %s.", o.ID, o.ProductName, o.Qty, o.TotalPrice.StringFixed(2)))
	}
	c.JSON(http.StatusCreated, o)
}

func (h Handlers) GatewayListOrders(c *gin.Context) {
	userID, _, ok := h.gatewayUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	list, err := h.Orders.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// GatewayConvoState returns where a user currently is in the bot
// conversation. Unknown users are idle.
func (h Handlers) GatewayConvoState(c *gin.Context) {
	tgID, err := strconv.ParseInt(c.Param("tg_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid tg_id"})
		return
	}
	sess, err := h.Convo.Current(c.Request.Context(), tgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type convoEventRequest struct {
	TgID  int64             `json:"tg_id"`
	Event string            `json:"event"`
	Data  map[string]string `json:"data,omitempty"`
}

// GatewayConvoApply advances a user's conversation by one event. An
// event the current state does not accept returns 409 with the
// unchanged session so the bot can re-prompt.
func (h Handlers) GatewayConvoApply(c *gin.Context) {
	var req convoEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, err := h.Convo.Apply(c.Request.Context(), req.TgID, convo.Event(req.Event), req.Data)
	if err != nil {
		if errors.Is(err, convo.ErrInvalidTransition) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "session": sess})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GatewayMenu returns the product groups and active top-up methods the
// bot renders as its main menu.
func (h Handlers) GatewayMenu(c *gin.Context) {
	groups, byGroup, err := h.Catalog.Menu(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	methods, err := h.Catalog.ListMethods(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "products": byGroup, "methods": methods})
}
