package sms

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"credit-store/internal/wallet"
	"credit-store/pkg/logger"
	"credit-store/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TopupApprover is the slice of the wallet service the webhook needs for
// auto-approval.
type TopupApprover interface {
	FindTopupByOpRef(ctx context.Context, opRef string) (wallet.LedgerEntry, bool, error)
	Approve(ctx context.Context, entryID, note string) (wallet.LedgerEntry, error)
}

// WebhookHandler receives operator SMS notifications from the phone
// gateway. The endpoint is public; the shared secret in the body is the
// only authentication, so reject early and do not leak detail.
type WebhookHandler struct {
	Secret   string
	SMS      *Service
	Approver TopupApprover

	// Redis enables per-sender rate limiting; nil disables it.
	Redis      *redis.Client
	RateLimit  int
	RateWindow time.Duration
}

type webhookPayload struct {
	Secret string `json:"secret"`
	Sender string `json:"sender"`
	Body   string `json:"body"`
	MsgUID string `json:"msg_uid,omitempty"`
}

// Handle processes POST /webhook/sms.
//
// The financial transition (approval) is attempted best-effort after the
// notification is stored. An approval failure never fails the request:
// the SMS stays claimed (concurrent deliveries must not re-drive an
// approval) and the top-up stays pending for manual review.
func (h WebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	var p webhookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(p.Secret), []byte(h.Secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if p.Body == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "body required"})
		return
	}

	if h.Redis != nil && h.RateLimit > 0 {
		ok, err := utils.AllowFixedWindow(c.Request.Context(), h.Redis, "sms:webhook:"+p.Sender, h.RateLimit, h.RateWindow)
		if err != nil {
			// Limiter trouble must not drop payment notifications.
			log.Warn("sms rate limiter unavailable", "err", err)
		} else if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
			return
		}
	}

	n, stored, err := h.SMS.Ingest(c.Request.Context(), p.Sender, p.Body, p.MsgUID)
	if err != nil {
		log.Error("sms ingest failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage failed"})
		return
	}
	if !stored {
		c.JSON(http.StatusOK, gin.H{"stored": false, "dedup": true})
		return
	}

	resp := gin.H{"stored": true, "dedup": false, "matched": false}
	if h.Approver != nil && n.OpRef != "" {
		if approved, matched := h.tryAutoApprove(c.Request.Context(), log, n); matched {
			resp["matched"] = true
			resp["approved"] = approved
		}
	}
	c.JSON(http.StatusOK, resp)
}

// tryAutoApprove correlates the stored notification with a pending
// top-up. The SMS is claimed first so concurrent deliveries of the same
// message cannot both drive an approval.
func (h WebhookHandler) tryAutoApprove(ctx context.Context, log *slog.Logger, n IncomingSMS) (approved, matched bool) {
	entry, ok, err := h.Approver.FindTopupByOpRef(ctx, n.OpRef)
	if err != nil {
		log.Warn("topup lookup failed", "op_ref", n.OpRef, "err", err)
		return false, false
	}
	if !ok || entry.Status != wallet.StatusPending {
		return false, false
	}

	claimed, err := h.SMS.Claim(ctx, n.OpRef, nil)
	if err != nil {
		log.Warn("sms claim failed", "op_ref", n.OpRef, "err", err)
		return false, false
	}
	if claimed == nil {
		// Another matcher won the claim.
		return false, true
	}

	if _, err := h.Approver.Approve(ctx, entry.ID, "auto-approved via sms"); err != nil {
		if errors.Is(err, wallet.ErrAlreadyFinalized) {
			return false, true
		}
		log.Warn("auto-approve failed", "entry_id", entry.ID, "err", err)
		return false, true
	}

	log.Info("topup auto-approved", "entry_id", entry.ID, "op_ref", n.OpRef)
	return true, true
}
