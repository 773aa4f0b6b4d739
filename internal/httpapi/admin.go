package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"credit-store/internal/audit"
	"credit-store/internal/reporting"
	"credit-store/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- Top-up review queue ---

func (h Handlers) ListPendingTopups(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.Wallet.ListPendingTopups(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topups": entries})
}

type approveRequest struct {
	Note string `json:"note,omitempty"`
}

func (h Handlers) ApproveTopup(c *gin.Context) {
	entryID := c.Param("id")
	var req approveRequest
	_ = c.ShouldBindJSON(&req)

	e, err := h.Wallet.Approve(c.Request.Context(), entryID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	actorID, actorRole := actor(c)
	if h.Audit != nil {
		_ = h.Audit.LogEntryAction(c.Request.Context(), audit.EventTypeTopupApproved,
			actorID, actorRole, c.ClientIP(), e.ID, "topup approved")
	}
	h.notifyOwner(c.Request.Context(), e.WalletID,
		fmt.Sprintf("Your top-up of %s was approved.", e.Amount.StringFixed(2)))

	c.JSON(http.StatusOK, e)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h Handlers) RejectTopup(c *gin.Context) {
	entryID := c.Param("id")
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reason required"})
		return
	}

	e, err := h.Wallet.Reject(c.Request.Context(), entryID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	actorID, actorRole := actor(c)
	if h.Audit != nil {
		_ = h.Audit.LogEntryAction(c.Request.Context(), audit.EventTypeTopupRejected,
			actorID, actorRole, c.ClientIP(), e.ID, "topup rejected: "+req.Reason)
	}
	h.notifyOwner(c.Request.Context(), e.WalletID,
		"Your top-up was rejected: "+req.Reason)

	c.JSON(http.StatusOK, e)
}

// --- Wallet adjustments ---

type adjustRequest struct {
	WalletID       string `json:"wallet_id"`
	Direction      string `json:"direction"`
	Amount         string `json:"amount"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h Handlers) AdjustWallet(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	e, err := h.Wallet.AdminAdjust(c.Request.Context(), wallet.AdminAdjustRequest{
		WalletID:       req.WalletID,
		Direction:      wallet.Direction(req.Direction),
		Amount:         amount,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	actorID, actorRole := actor(c)
	if h.Audit != nil {
		_ = h.Audit.LogWalletAdjust(c.Request.Context(), actorID, actorRole, c.ClientIP(),
			req.WalletID, e.ID, fmt.Sprintf("%s %s: %s", req.Direction, e.Amount.StringFixed(2), req.Reason))
	}

	c.JSON(http.StatusOK, e)
}

// --- Users ---

func (h Handlers) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.Users.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

type setTierRequest struct {
	Tier int `json:"tier"`
}

func (h Handlers) SetUserTier(c *gin.Context) {
	var req setTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.SetTier(c.Request.Context(), c.Param("id"), req.Tier)
	if err != nil {
		respondError(c, err)
		return
	}

	actorID, actorRole := actor(c)
	if h.Audit != nil {
		_ = h.Audit.LogUserUpdate(c.Request.Context(), actorID, actorRole, c.ClientIP(),
			u.ID, fmt.Sprintf("tier set to %d", req.Tier))
	}
	c.JSON(http.StatusOK, u)
}

type setBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

func (h Handlers) SetUserBlocked(c *gin.Context) {
	var req setBlockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Users.SetBlocked(c.Request.Context(), c.Param("id"), req.Blocked)
	if err != nil {
		respondError(c, err)
		return
	}

	actorID, actorRole := actor(c)
	if h.Audit != nil {
		msg := "unblocked"
		if req.Blocked {
			msg = "blocked"
		}
		_ = h.Audit.LogUserUpdate(c.Request.Context(), actorID, actorRole, c.ClientIP(), u.ID, msg)
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) GetUserBalance(c *gin.Context) {
	w, err := h.Wallet.GetBalance(c.Request.Context(), c.Param("id"), "USD")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// --- Orders ---

func (h Handlers) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.Orders.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h Handlers) CompleteOrder(c *gin.Context) {
	o, err := h.Orders.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// --- Stats ---

func (h Handlers) GetStats(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = t
	}

	sum, err := h.Stats.Summarize(c.Request.Context(), reporting.TimeRange{From: from, To: to})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
