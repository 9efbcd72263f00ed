package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/credora/ledger/internal/core/client"
	"github.com/credora/ledger/internal/core/client/store/clientdb"
	"github.com/credora/ledger/internal/data/dbtest"
	"github.com/credora/ledger/internal/locker"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestValidation(t *testing.T) {
	// Invalid input must be rejected before any store access, so a core
	// with no store behind it is enough here.
	core := client.NewCore(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		clientID int
		nt       client.NewTransaction
		want     error
	}{
		{"unknown client", 6, client.NewTransaction{Value: 1, Type: "c", Description: "desc"}, client.ErrNotFound},
		{"zero client", 0, client.NewTransaction{Value: 1, Type: "c", Description: "desc"}, client.ErrNotFound},
		{"negative client", -1, client.NewTransaction{Value: 1, Type: "c", Description: "desc"}, client.ErrNotFound},
		{"zero value", 1, client.NewTransaction{Value: 0, Type: "c", Description: "desc"}, client.ErrInvalidArgument},
		{"negative value", 1, client.NewTransaction{Value: -5, Type: "c", Description: "desc"}, client.ErrInvalidArgument},
		{"bad type", 1, client.NewTransaction{Value: 1, Type: "x", Description: "desc"}, client.ErrInvalidArgument},
		{"empty description", 1, client.NewTransaction{Value: 1, Type: "c", Description: ""}, client.ErrInvalidArgument},
		{"long description", 1, client.NewTransaction{Value: 1, Type: "c", Description: "12345678901"}, client.ErrInvalidArgument},
		{"unknown client with bad input", 6, client.NewTransaction{Value: 0, Type: "x", Description: ""}, client.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.AddTransaction(ctx, tt.clientID, tt.nt)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got error %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAddTransaction(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	core := client.NewCore(clientdb.NewStore(log, database), locker.NewLocal())

	clientID := 2

	nt := client.NewTransaction{
		Value:       100,
		Type:        "d",
		Description: "hello",
	}

	cret, err := core.AddTransaction(ctx, clientID, nt)
	if err != nil {
		t.Fatalf("adding transaction: %v", err)
	}

	c, err := core.QueryByID(ctx, clientID)
	if err != nil {
		t.Fatalf("failed to query clientID[%d]: %v", clientID, err)
	}

	if diff := cmp.Diff(cret, c); diff != "" {
		t.Fatalf("got different clients: %s", diff)
	}

	if c.Balance != -100 {
		t.Fatalf("got %d balance want %d", c.Balance, -100)
	}
}

func TestOverdraftLimit(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	core := client.NewCore(clientdb.NewStore(log, database), locker.NewLocal())

	// Client 1 is seeded with limit 100000 and balance 0.
	clientID := 1

	c, err := core.AddTransaction(ctx, clientID, client.NewTransaction{Value: 1, Type: "d", Description: "debit"})
	if err != nil {
		t.Fatalf("adding debit: %v", err)
	}
	if c.Limit != 100000 || c.Balance != -1 {
		t.Fatalf("got limit %d balance %d, want limit %d balance %d", c.Limit, c.Balance, 100000, -1)
	}

	_, err = core.AddTransaction(ctx, clientID, client.NewTransaction{Value: 99999999, Type: "d", Description: "too big"})
	if !errors.Is(err, client.ErrLimitExceeded) {
		t.Fatalf("got error %v, want %v", err, client.ErrLimitExceeded)
	}

	c, err = core.QueryByID(ctx, clientID)
	if err != nil {
		t.Fatalf("failed to query clientID[%d]: %v", clientID, err)
	}
	if c.Balance != -1 {
		t.Fatalf("balance changed by denied transaction: got %d want %d", c.Balance, -1)
	}

	c, err = core.AddTransaction(ctx, clientID, client.NewTransaction{Value: 1, Type: "c", Description: "credit"})
	if err != nil {
		t.Fatalf("adding credit: %v", err)
	}
	if c.Limit != 100000 || c.Balance != 0 {
		t.Fatalf("got limit %d balance %d, want limit %d balance %d", c.Limit, c.Balance, 100000, 0)
	}
}

func TestConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	core := client.NewCore(clientdb.NewStore(log, database), locker.NewLocal())

	clientID := 3
	const debits = 50

	var wg sync.WaitGroup
	wg.Add(debits)
	for range debits {
		go func() {
			defer wg.Done()
			nt := client.NewTransaction{Value: 1, Type: "d", Description: "one cent"}
			if _, err := core.AddTransaction(ctx, clientID, nt); err != nil {
				t.Errorf("adding transaction: %v", err)
			}
		}()
	}
	wg.Wait()

	c, err := core.QueryByID(ctx, clientID)
	if err != nil {
		t.Fatalf("failed to query clientID[%d]: %v", clientID, err)
	}
	if c.Balance != -debits {
		t.Fatalf("lost updates: got balance %d want %d", c.Balance, -debits)
	}
}

func TestStatement(t *testing.T) {
	ctx := context.Background()
	log, database, teardown := dbtest.NewUnit(t, dbtest.WithMigrations())
	t.Cleanup(teardown)

	core := client.NewCore(clientdb.NewStore(log, database), locker.NewLocal())

	clientID := 4

	st, err := core.Statement(ctx, clientID)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(st.LastTransactions) != 0 {
		t.Fatalf("got %d transactions, want none", len(st.LastTransactions))
	}

	if _, err := core.AddTransaction(ctx, clientID, client.NewTransaction{Value: 10, Type: "c", Description: "first"}); err != nil {
		t.Fatalf("adding transaction: %v", err)
	}
	if _, err := core.AddTransaction(ctx, clientID, client.NewTransaction{Value: 3, Type: "d", Description: "second"}); err != nil {
		t.Fatalf("adding transaction: %v", err)
	}

	st, err = core.Statement(ctx, clientID)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}

	if st.Balance != 7 {
		t.Errorf("got balance %d want %d", st.Balance, 7)
	}
	if st.Limit != 10000000 {
		t.Errorf("got limit %d want %d", st.Limit, 10000000)
	}
	if len(st.LastTransactions) != 2 {
		t.Fatalf("got %d transactions, want %d", len(st.LastTransactions), 2)
	}
	if st.LastTransactions[0].Description != "second" {
		t.Errorf("newest transaction should come first, got %q", st.LastTransactions[0].Description)
	}
	if st.LastTransactions[1].Description != "first" {
		t.Errorf("oldest transaction should come last, got %q", st.LastTransactions[1].Description)
	}

	// A statement is a pure read: asking again without intervening writes
	// must return the same view, snapshot date aside.
	st2, err := core.Statement(ctx, clientID)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	ignoreDate := cmpopts.IgnoreFields(client.Statement{}, "Date")
	if diff := cmp.Diff(st, st2, ignoreDate); diff != "" {
		t.Fatalf("repeated reads differ: %s", diff)
	}

	for range 25 {
		if _, err := core.AddTransaction(ctx, clientID, client.NewTransaction{Value: 1, Type: "c", Description: "filler"}); err != nil {
			t.Fatalf("adding transaction: %v", err)
		}
	}

	st, err = core.Statement(ctx, clientID)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(st.LastTransactions) != 10 {
		t.Fatalf("got %d transactions, want %d", len(st.LastTransactions), 10)
	}

	if _, err := core.Statement(ctx, 6); !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("client 6 statement: got error %v, want %v", err, client.ErrNotFound)
	}
}
