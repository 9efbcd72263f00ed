package handlers

import (
	"encoding/json"
	"time"

	"github.com/credora/ledger/internal/core/client"
)

// TransactionsReq carries Value as a json.Number so a fractional amount is
// rejected as an invalid argument instead of being truncated by the decoder.
type TransactionsReq struct {
	Value       json.Number `json:"value"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
}

type TransactionsResp struct {
	Limit   int `json:"limit"`
	Balance int `json:"balance"`
}

type Balance struct {
	Total int       `json:"total"`
	Limit int       `json:"limit"`
	Date  time.Time `json:"date"`
}

type StatementResp struct {
	Balance          Balance       `json:"balance"`
	LastTransactions []Transaction `json:"latest_transactions"`
}

type Transaction struct {
	Value       int       `json:"value"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Date        time.Time `json:"executed_at"`
}

func toStatementResp(st client.Statement) StatementResp {
	return StatementResp{
		Balance: Balance{
			Total: st.Balance,
			Limit: st.Limit,
			Date:  st.Date,
		},
		LastTransactions: toTransactions(st.LastTransactions),
	}
}

func toTransactions(ts []client.Transaction) []Transaction {
	slice := make([]Transaction, len(ts))
	for i, t := range ts {
		slice[i] = toTransaction(t)
	}
	return slice
}

func toTransaction(t client.Transaction) Transaction {
	return Transaction{
		Value:       t.Value,
		Type:        t.Type,
		Description: t.Description,
		Date:        t.Date,
	}
}
