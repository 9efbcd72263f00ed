package client

import (
	"time"
)

// Client is a provisioned ledger account. Balance may go negative down to
// -Limit. Values are integer cents.
type Client struct {
	ID      int
	Limit   int
	Balance int
}

// NewTransaction is the information needed to apply a transaction.
type NewTransaction struct {
	Value       int
	Type        string
	Description string
}

// Transaction is a committed ledger entry. ID is assigned by the store and
// grows monotonically, so it doubles as the insertion-order tiebreak.
type Transaction struct {
	ID          int64
	ClientID    int
	Value       int
	Type        string
	Description string
	Date        time.Time
}

// Statement is a point-in-time view of a client's balance and its most
// recent transactions, newest first.
type Statement struct {
	Balance          int
	Limit            int
	Date             time.Time
	LastTransactions []Transaction
}
