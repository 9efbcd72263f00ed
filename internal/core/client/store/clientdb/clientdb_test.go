package clientdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/credora/ledger/internal/core/client"
	"github.com/credora/ledger/internal/data/dbtest"
)

func TestQueryByID(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	c, err := store.QueryByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to query client by id[%d]: %v", 1, err)
	}

	if c.ID != 1 {
		t.Errorf("wrong id, got %d want %v", c.ID, 1)
	}
	if c.Limit != 100000 {
		t.Errorf("wrong limit, got %d want %v", c.Limit, 100000)
	}
	if c.Balance != 0 {
		t.Errorf("wrong balance, got %d want %v", c.Balance, 0)
	}

	if _, err := store.QueryByID(ctx, 6); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("query id 6: got error %v, want %v", err, client.ErrNotFound)
	}
}

func TestAddTransaction(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	added, err := store.AddTransaction(ctx, genTransaction(3, time.Now()))
	if err != nil {
		t.Fatalf("failed to add transaction: %v", err)
	}

	if added.ID == 0 {
		t.Error("transaction id should be assigned by the store")
	}
	if added.Value != 750 {
		t.Errorf("debit value must round trip positive, got %d want %d", added.Value, 750)
	}
	if added.Type != "d" {
		t.Errorf("wrong type got %q want %q", added.Type, "d")
	}

	second, err := store.AddTransaction(ctx, genTransaction(3, time.Now()))
	if err != nil {
		t.Fatalf("failed to add transaction: %v", err)
	}
	if second.ID <= added.ID {
		t.Errorf("ids must grow: got %d after %d", second.ID, added.ID)
	}
}

func TestQueryLastTransactions(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	clientID := 3
	for range 25 {
		if _, err := store.AddTransaction(ctx, genTransaction(clientID, time.Now())); err != nil {
			t.Fatalf("failed to add transaction: %v", err)
		}
	}

	ts, err := store.QueryLastTransactions(ctx, clientID, 10)
	if err != nil {
		t.Fatalf("failed to query transactions: %v", err)
	}
	if len(ts) != 10 {
		t.Fatalf("got %d transactions, want %d", len(ts), 10)
	}
	for i := 1; i < len(ts); i++ {
		if ts[i].ID > ts[i-1].ID {
			t.Fatalf("transactions out of order: id %d before %d", ts[i-1].ID, ts[i].ID)
		}
	}
	if ts[0].Value != 750 {
		t.Errorf("wrong value got %d want %d", ts[0].Value, 750)
	}
	if ts[0].Type != "d" {
		t.Errorf("wrong type got %q want %q", ts[0].Type, "d")
	}

	clientID = 1
	ts, err = store.QueryLastTransactions(ctx, clientID, 10)
	if err != nil {
		t.Fatalf("failed to query transactions: %v", err)
	}
	if len(ts) != 0 {
		t.Errorf("got %d should return 0 transactions", len(ts))
	}
}

func TestInsertionOrderTiebreak(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	store := NewStore(log, database)

	// Two transactions with the exact same timestamp: the one inserted
	// later must come back first.
	now := time.Now().UTC().Round(time.Microsecond)

	older := genTransaction(2, now)
	older.Description = "older"
	if _, err := store.AddTransaction(ctx, older); err != nil {
		t.Fatalf("failed to add transaction: %v", err)
	}

	newer := genTransaction(2, now)
	newer.Description = "newer"
	if _, err := store.AddTransaction(ctx, newer); err != nil {
		t.Fatalf("failed to add transaction: %v", err)
	}

	ts, err := store.QueryLastTransactions(ctx, 2, 10)
	if err != nil {
		t.Fatalf("failed to query transactions: %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("got %d transactions, want %d", len(ts), 2)
	}
	if ts[0].Description != "newer" || ts[1].Description != "older" {
		t.Fatalf("wrong tiebreak order: got [%q, %q]", ts[0].Description, ts[1].Description)
	}
}

func genTransaction(clientID int, date time.Time) client.Transaction {
	return client.Transaction{
		ClientID:    clientID,
		Value:       750,
		Type:        "d",
		Description: "desc",
		Date:        date,
	}
}
