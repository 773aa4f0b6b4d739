package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tierProduct() Product {
	return Product{
		CostPerUnit: dec("1.00"),
		Profit1:     dec("0.30"),
		Profit2:     dec("0.20"),
		Profit3:     dec("0.10"),
		// Profit4 unset: tier 4 falls back to tier 1.
	}
}

func TestUnitPriceForTier(t *testing.T) {
	p := tierProduct()
	cases := []struct {
		tier int
		want string
	}{
		{1, "1.30"},
		{2, "1.20"},
		{3, "1.10"},
		{4, "1.30"},
		{0, "1.30"},
		{9, "1.30"},
	}
	for _, tc := range cases {
		if got := p.UnitPriceForTier(tc.tier); !got.Equal(dec(tc.want)) {
			t.Fatalf("tier %d: got %s, want %s", tc.tier, got, tc.want)
		}
	}
}

func TestExchangeRate_ConvertTruncates(t *testing.T) {
	r := ExchangeRate{From: "SYP", To: "USD", Value: dec("15000")}
	// 151500 / 15000 = 10.10
	if got := r.Convert(dec("151500")); !got.Equal(dec("10.10")) {
		t.Fatalf("got %s, want 10.10", got)
	}
	// 100000 / 15000 = 6.666... -> 6.66, never rounded up
	if got := r.Convert(dec("100000")); !got.Equal(dec("6.66")) {
		t.Fatalf("got %s, want 6.66", got)
	}
	zero := ExchangeRate{}
	if got := zero.Convert(dec("100")); !got.IsZero() {
		t.Fatalf("zero rate must convert to zero, got %s", got)
	}
}

func TestGroupName(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"PUBG 60 UC", "PUBG"},
		{"PUBG 325 UC", "PUBG"},
		{"Free Fire 100 Diamonds", "Free Fire"},
		{"Netflix Premium", "Netflix Premium"},
		{"60 UC", "60 UC"},
	}
	for _, tc := range cases {
		if got := GroupName(tc.name); got != tc.want {
			t.Fatalf("GroupName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestGroupProducts_FirstSeenOrder(t *testing.T) {
	products := []Product{
		{Name: "PUBG 60 UC"},
		{Name: "Free Fire 100 Diamonds"},
		{Name: "PUBG 325 UC"},
	}
	order, groups := GroupProducts(products)
	if len(order) != 2 || order[0] != "PUBG" || order[1] != "Free Fire" {
		t.Fatalf("unexpected order: %v", order)
	}
	if len(groups["PUBG"]) != 2 {
		t.Fatalf("expected 2 PUBG products, got %d", len(groups["PUBG"]))
	}
}

func TestQuote(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	p := tierProduct()
	p.Name = "PUBG 60 UC"
	p.ProviderProductID = "pubg-60"
	p.MinQty = 1
	p.MaxQty = 10
	p.Active = true
	created, err := svc.CreateProduct(context.Background(), p)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, total, err := svc.Quote(context.Background(), created.ID, 2, 3)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !total.Equal(dec("3.60")) {
		t.Fatalf("got %s, want 3.60", total)
	}

	if _, _, err := svc.Quote(context.Background(), created.ID, 1, 11); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument above max qty, got %v", err)
	}
	if _, _, err := svc.Quote(context.Background(), created.ID, 1, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument below min qty, got %v", err)
	}
}

func TestQuote_InactiveProductHidden(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	p := tierProduct()
	p.Name = "Old 10"
	p.ProviderProductID = "old-10"
	p.Active = false
	created, err := svc.CreateProduct(context.Background(), p)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Quote(context.Background(), created.ID, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive product, got %v", err)
	}
}

func TestSetRateAndConvert(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, err := svc.SetRate(context.Background(), "SYP", "USD", dec("15000")); err != nil {
		t.Fatalf("set rate failed: %v", err)
	}
	got, err := svc.ConvertToUSD(context.Background(), "SYP", dec("150000"))
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if !got.Equal(dec("10")) {
		t.Fatalf("got %s, want 10", got)
	}

	// Upsert replaces the value for the pair.
	if _, err := svc.SetRate(context.Background(), "SYP", "USD", dec("10000")); err != nil {
		t.Fatalf("second set rate failed: %v", err)
	}
	got, err = svc.ConvertToUSD(context.Background(), "SYP", dec("150000"))
	if err != nil || !got.Equal(dec("15")) {
		t.Fatalf("got (%s, %v), want 15", got, err)
	}
}
