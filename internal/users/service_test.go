package users

import (
	"context"
	"errors"
	"testing"

	"credit-store/internal/wallet"
)

type fakeProvisioner struct {
	ensured []string
}

func (f *fakeProvisioner) EnsureWallet(_ context.Context, userID, currency string) (wallet.Wallet, error) {
	f.ensured = append(f.ensured, userID+":"+currency)
	return wallet.Wallet{ID: "w1", UserID: userID, Currency: currency}, nil
}

func TestRegisterOrFetch_CreatesUserAndWallet(t *testing.T) {
	prov := &fakeProvisioner{}
	svc := NewService(NewMemoryRepo(), prov)

	u, err := svc.RegisterOrFetch(context.Background(), 42, "alice", "SY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.TgID != 42 || u.Tier != MinTier || u.Blocked {
		t.Fatalf("unexpected user: %+v", u)
	}
	if len(prov.ensured) != 1 || prov.ensured[0] != u.ID+":USD" {
		t.Fatalf("expected USD wallet provisioned, got %v", prov.ensured)
	}
}

func TestRegisterOrFetch_SecondContactReturnsSameUser(t *testing.T) {
	prov := &fakeProvisioner{}
	svc := NewService(NewMemoryRepo(), prov)

	first, err := svc.RegisterOrFetch(context.Background(), 42, "alice", "SY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.RegisterOrFetch(context.Background(), 42, "alice", "SY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user, got %s vs %s", second.ID, first.ID)
	}
}

func TestRegisterOrFetch_RefreshesName(t *testing.T) {
	svc := NewService(NewMemoryRepo(), &fakeProvisioner{})

	if _, err := svc.RegisterOrFetch(context.Background(), 42, "alice", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := svc.RegisterOrFetch(context.Background(), 42, "alice-renamed", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Name != "alice-renamed" {
		t.Fatalf("expected refreshed name, got %q", u.Name)
	}
}

func TestRegisterOrFetch_RejectsZeroTgID(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	if _, err := svc.RegisterOrFetch(context.Background(), 0, "x", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSetTier_Bounds(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	u, err := svc.RegisterOrFetch(context.Background(), 42, "alice", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.SetTier(context.Background(), u.ID, 3)
	if err != nil || got.Tier != 3 {
		t.Fatalf("SetTier(3) = (%+v, %v)", got, err)
	}
	if _, err := svc.SetTier(context.Background(), u.ID, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for tier 0, got %v", err)
	}
	if _, err := svc.SetTier(context.Background(), u.ID, 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for tier 5, got %v", err)
	}
}

func TestRequireActive_BlockedUser(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	u, err := svc.RegisterOrFetch(context.Background(), 42, "alice", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.RequireActive(context.Background(), 42); err != nil {
		t.Fatalf("active user rejected: %v", err)
	}

	if _, err := svc.SetBlocked(context.Background(), u.ID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.RequireActive(context.Background(), 42); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}

	if _, err := svc.SetBlocked(context.Background(), u.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.RequireActive(context.Background(), 42); err != nil {
		t.Fatalf("unblocked user rejected: %v", err)
	}
}
