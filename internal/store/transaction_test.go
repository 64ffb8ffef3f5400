package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/pointqr/internal/database"
	"github.com/dukerupert/pointqr/internal/model"
)

type ledgerStores struct {
	shops        *ShopStore
	customers    *CustomerStore
	transactions *TransactionStore
}

func setupLedgerTestDB(t *testing.T) ledgerStores {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return ledgerStores{
		shops:        NewShopStore(db),
		customers:    NewCustomerStore(db),
		transactions: NewTransactionStore(db),
	}
}

func seedShopAndCustomer(t *testing.T, s ledgerStores) (*model.Shop, *model.Customer) {
	t.Helper()
	shop, err := s.shops.Create("Star Coffee", "star@example.com")
	if err != nil {
		t.Fatalf("create shop: %v", err)
	}
	cust, err := s.customers.Create("Ada", "ada@example.com")
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return shop, cust
}

func TestTransactionCreate(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, _ := seedShopAndCustomer(t, s)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	txn, err := s.transactions.Create(shop.ID, "Code1234abcd", 50, now, model.GrantTTL)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if txn.Status != model.GrantPending {
		t.Errorf("status = %q, want %q", txn.Status, model.GrantPending)
	}
	if txn.Points != 50 {
		t.Errorf("points = %d, want 50", txn.Points)
	}
	if !txn.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("expires_at = %v, want %v", txn.ExpiresAt, now.Add(5*time.Minute))
	}
	if txn.CodeHash == "Code1234abcd" || txn.CodeHash != HashCode("Code1234abcd") {
		t.Errorf("code hash = %q, want blake2b digest", txn.CodeHash)
	}
	if txn.CustomerID != nil {
		t.Errorf("customer_id = %v, want nil", *txn.CustomerID)
	}
}

func TestTransactionCreateDuplicateCode(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, _ := seedShopAndCustomer(t, s)

	if _, err := s.transactions.Create(shop.ID, "dup", 10, time.Now(), model.GrantTTL); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.transactions.Create(shop.ID, "dup", 20, time.Now(), model.GrantTTL)
	if !errors.Is(err, ErrCodeExists) {
		t.Errorf("err = %v, want ErrCodeExists", err)
	}
}

func TestTransactionCreateExpiredCodeNotReusable(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, _ := seedShopAndCustomer(t, s)
	past := time.Now().Add(-time.Hour)

	if _, err := s.transactions.Create(shop.ID, "old", 10, past, model.GrantTTL); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.transactions.ExpirePending(time.Now()); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := s.transactions.Create(shop.ID, "old", 10, time.Now(), model.GrantTTL); !errors.Is(err, ErrCodeExists) {
		t.Errorf("err = %v, want ErrCodeExists", err)
	}
}

func TestTransactionCreateUnknownShop(t *testing.T) {
	s := setupLedgerTestDB(t)

	_, err := s.transactions.Create(999, "code", 10, time.Now(), model.GrantTTL)
	if !errors.Is(err, ErrShopNotFound) {
		t.Errorf("err = %v, want ErrShopNotFound", err)
	}
}

func TestTransactionRedeem(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, cust := seedShopAndCustomer(t, s)
	now := time.Now().UTC()

	if _, err := s.transactions.Create(shop.ID, "redeem-me", 50, now, model.GrantTTL); err != nil {
		t.Fatalf("create: %v", err)
	}

	txn, c, err := s.transactions.Redeem("redeem-me", cust.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if txn.Status != model.GrantRedeemed {
		t.Errorf("status = %q, want %q", txn.Status, model.GrantRedeemed)
	}
	if txn.CustomerID == nil || *txn.CustomerID != cust.ID {
		t.Errorf("customer_id = %v, want %d", txn.CustomerID, cust.ID)
	}
	if txn.RedeemedAt == nil {
		t.Error("expected redeemed_at to be set")
	}
	if c.Points != 50 {
		t.Errorf("customer points = %d, want 50", c.Points)
	}
}

func TestTransactionRedeemTwice(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, cust := seedShopAndCustomer(t, s)
	now := time.Now().UTC()

	s.transactions.Create(shop.ID, "once", 50, now, model.GrantTTL)
	if _, _, err := s.transactions.Redeem("once", cust.ID, now); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	_, _, err := s.transactions.Redeem("once", cust.ID, now)
	if !errors.Is(err, ErrAlreadyRedeemed) {
		t.Errorf("err = %v, want ErrAlreadyRedeemed", err)
	}

	got, err := s.customers.GetByID(cust.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if got.Points != 50 {
		t.Errorf("points = %d, want 50 (credited once)", got.Points)
	}
}

func TestTransactionRedeemConcurrent(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, cust := seedShopAndCustomer(t, s)
	now := time.Now().UTC()
	s.transactions.Create(shop.ID, "race", 10, now, model.GrantTTL)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.transactions.Redeem("race", cust.ID, now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestTransactionRedeemExpired(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, cust := seedShopAndCustomer(t, s)
	issued := time.Now().UTC().Add(-10 * time.Minute)
	s.transactions.Create(shop.ID, "stale", 10, issued, model.GrantTTL)

	_, _, err := s.transactions.Redeem("stale", cust.ID, time.Now())
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}

	txn, err := s.transactions.GetByCode("stale")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if txn.Status != model.GrantExpired {
		t.Errorf("status = %q, want %q", txn.Status, model.GrantExpired)
	}
	c, _ := s.customers.GetByID(cust.ID)
	if c.Points != 0 {
		t.Errorf("points = %d, want 0", c.Points)
	}
}

func TestTransactionRedeemUnknown(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, cust := seedShopAndCustomer(t, s)
	s.transactions.Create(shop.ID, "known", 10, time.Now(), model.GrantTTL)

	if _, _, err := s.transactions.Redeem("missing", cust.ID, time.Now()); !errors.Is(err, ErrTransactionAbsent) {
		t.Errorf("err = %v, want ErrTransactionAbsent", err)
	}
	if _, _, err := s.transactions.Redeem("known", 999, time.Now()); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("err = %v, want ErrCustomerNotFound", err)
	}
}

func TestExpirePending(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, cust := seedShopAndCustomer(t, s)
	now := time.Now().UTC()

	s.transactions.Create(shop.ID, "old-1", 10, now.Add(-20*time.Minute), model.GrantTTL)
	s.transactions.Create(shop.ID, "old-2", 10, now.Add(-6*time.Minute), model.GrantTTL)
	s.transactions.Create(shop.ID, "fresh", 10, now, model.GrantTTL)
	s.transactions.Create(shop.ID, "used", 10, now.Add(-4*time.Minute), model.GrantTTL)
	if _, _, err := s.transactions.Redeem("used", cust.ID, now); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	expired, err := s.transactions.ExpirePending(now.Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expired = %d rows, want 2", len(expired))
	}
	for _, txn := range expired {
		if txn.Status != model.GrantExpired {
			t.Errorf("row %d status = %q, want expired", txn.ID, txn.Status)
		}
	}

	again, err := s.transactions.ExpirePending(now.Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("expire again: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second sweep expired %d rows, want 0", len(again))
	}
}

func TestListByCustomer(t *testing.T) {
	s := setupLedgerTestDB(t)
	shop, cust := seedShopAndCustomer(t, s)
	now := time.Now().UTC()

	s.transactions.Create(shop.ID, "a", 10, now, model.GrantTTL)
	s.transactions.Create(shop.ID, "b", 20, now, model.GrantTTL)
	s.transactions.Redeem("a", cust.ID, now)

	txns, err := s.transactions.ListByCustomer(cust.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("len = %d, want 1", len(txns))
	}
	if txns[0].Points != 10 {
		t.Errorf("points = %d, want 10", txns[0].Points)
	}
}
