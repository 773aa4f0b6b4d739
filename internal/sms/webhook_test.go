package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"credit-store/internal/wallet"

	"github.com/gin-gonic/gin"
)

type fakeApprover struct {
	entry    wallet.LedgerEntry
	found    bool
	approved []string
	err      error
}

func (f *fakeApprover) FindTopupByOpRef(_ context.Context, opRef string) (wallet.LedgerEntry, bool, error) {
	return f.entry, f.found, nil
}

func (f *fakeApprover) Approve(_ context.Context, entryID, note string) (wallet.LedgerEntry, error) {
	if f.err != nil {
		return wallet.LedgerEntry{}, f.err
	}
	f.approved = append(f.approved, entryID)
	f.entry.Status = wallet.StatusApproved
	return f.entry, nil
}

func webhookRouter(h WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/sms", h.Handle)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, payload map[string]any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/webhook/sms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestWebhook_RejectsBadSecret(t *testing.T) {
	h := WebhookHandler{Secret: "right", SMS: testService(NewMemoryStore())}
	r := webhookRouter(h)

	w, _ := postWebhook(t, r, map[string]any{"secret": "wrong", "body": "Ref: X"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestWebhook_RejectsEmptyBody(t *testing.T) {
	h := WebhookHandler{Secret: "s", SMS: testService(NewMemoryStore())}
	r := webhookRouter(h)

	w, _ := postWebhook(t, r, map[string]any{"secret": "s"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhook_StoresAndReportsDedup(t *testing.T) {
	h := WebhookHandler{Secret: "s", SMS: testService(NewMemoryStore())}
	r := webhookRouter(h)

	payload := map[string]any{"secret": "s", "sender": "op", "body": "Ref: AB1", "msg_uid": "u1"}

	w, resp := postWebhook(t, r, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["stored"] != true {
		t.Fatalf("first delivery should store: %v", resp)
	}

	w, resp = postWebhook(t, r, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", w.Code)
	}
	if resp["stored"] != false || resp["dedup"] != true {
		t.Fatalf("duplicate delivery should report dedup: %v", resp)
	}
}

func TestWebhook_AcceptsBlankSender(t *testing.T) {
	h := WebhookHandler{Secret: "s", SMS: testService(NewMemoryStore())}
	r := webhookRouter(h)

	// Some gateways omit the sender field; the notification must still
	// be stored.
	w, resp := postWebhook(t, r, map[string]any{"secret": "s", "body": "Ref: AB1", "msg_uid": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["stored"] != true {
		t.Fatalf("blank sender should store: %v", resp)
	}
}

func TestWebhook_AutoApprovesMatchingTopup(t *testing.T) {
	approver := &fakeApprover{
		entry: wallet.LedgerEntry{ID: "e1", Status: wallet.StatusPending, OpRef: "600123"},
		found: true,
	}
	h := WebhookHandler{Secret: "s", SMS: testService(NewMemoryStore()), Approver: approver}
	r := webhookRouter(h)

	w, resp := postWebhook(t, r, map[string]any{
		"secret": "s", "sender": "op",
		"body":    "تم استلام مبلغ 150000 ل.س. رقم العملية: 600123",
		"msg_uid": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["matched"] != true || resp["approved"] != true {
		t.Fatalf("expected matched+approved, got %v", resp)
	}
	if len(approver.approved) != 1 || approver.approved[0] != "e1" {
		t.Fatalf("expected entry e1 approved once, got %v", approver.approved)
	}
}

func TestWebhook_NoApprovalWithoutPendingTopup(t *testing.T) {
	approver := &fakeApprover{found: false}
	h := WebhookHandler{Secret: "s", SMS: testService(NewMemoryStore()), Approver: approver}
	r := webhookRouter(h)

	w, resp := postWebhook(t, r, map[string]any{
		"secret": "s", "sender": "op", "body": "Ref: ZZ9", "msg_uid": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["matched"] != false {
		t.Fatalf("expected no match, got %v", resp)
	}
	if len(approver.approved) != 0 {
		t.Fatalf("no approval expected, got %v", approver.approved)
	}
}

func TestWebhook_AlreadyFinalizedIsTolerated(t *testing.T) {
	approver := &fakeApprover{
		entry: wallet.LedgerEntry{ID: "e1", Status: wallet.StatusPending, OpRef: "R1"},
		found: true,
		err:   wallet.ErrAlreadyFinalized,
	}
	h := WebhookHandler{Secret: "s", SMS: testService(NewMemoryStore()), Approver: approver}
	r := webhookRouter(h)

	w, resp := postWebhook(t, r, map[string]any{
		"secret": "s", "sender": "op", "body": "Ref: R1", "msg_uid": "u1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["matched"] != true || resp["approved"] != false {
		t.Fatalf("expected matched but not approved, got %v", resp)
	}
}
