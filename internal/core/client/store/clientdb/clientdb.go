// Package clientdb contains client related CRUD functionality backed by
// PostgreSQL.
package clientdb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/credora/ledger/internal/core/client"
	db "github.com/credora/ledger/internal/data/dbsql/pgx"
)

type Store struct {
	log *slog.Logger
	db  db.DB
}

func NewStore(log *slog.Logger, database db.DB) *Store {
	return &Store{
		log: log,
		db:  database,
	}
}

// ExecUnderTx executes fn under a transaction. If fn returns an error the
// transaction is rolled back and the error is returned.
func (s *Store) ExecUnderTx(ctx context.Context, fn func(tx client.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(NewStore(s.log, tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ExecUnderSnapshot executes fn under a read only repeatable read
// transaction: every query inside fn observes the same committed state.
func (s *Store) ExecUnderSnapshot(ctx context.Context, fn func(tx client.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `SET TRANSACTION ISOLATION LEVEL REPEATABLE READ, READ ONLY`
	if _, err := tx.Exec(ctx, q); err != nil {
		return err
	}

	if err := fn(NewStore(s.log, tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) QueryByID(ctx context.Context, clientID int) (client.Client, error) {
	return s.queryByID(ctx, clientID, false)
}

// QueryByIDForUpdate reads the client's row and locks it until the enclosing
// transaction ends. Concurrent writers for the same client queue here.
func (s *Store) QueryByIDForUpdate(ctx context.Context, clientID int) (client.Client, error) {
	return s.queryByID(ctx, clientID, true)
}

func (s *Store) queryByID(ctx context.Context, clientID int, forUpdate bool) (client.Client, error) {
	data := struct {
		ID int `db:"id"`
	}{
		ID: clientID,
	}

	q := `
	SELECT
		id,
		credit_limit,
		balance
	FROM
		clients
	WHERE
		id = @id`
	if forUpdate {
		q += `
	FOR UPDATE`
	}

	c, err := db.NamedQueryStruct[dbClient](ctx, s.log, s.db, q, data)
	if err != nil {
		if errors.Is(err, db.ErrDBNotFound) {
			return client.Client{}, client.ErrNotFound
		}
		return client.Client{}, err
	}

	return toClient(c), nil
}

// UpdateBalance persists a new balance for the client. Callers must hold the
// row lock taken by QueryByIDForUpdate.
func (s *Store) UpdateBalance(ctx context.Context, clientID int, balance int) error {
	data := struct {
		ID      int `db:"id"`
		Balance int `db:"balance"`
	}{
		ID:      clientID,
		Balance: balance,
	}

	const q = `
	UPDATE clients SET
		balance = @balance
	WHERE
		id = @id`

	return db.NamedExec(ctx, s.log, s.db, q, data)
}

// AddTransaction appends t to the transaction log and returns it with the
// store assigned id.
func (s *Store) AddTransaction(ctx context.Context, t client.Transaction) (client.Transaction, error) {
	const q = `
	INSERT INTO transactions
		(client_id, value, type, description, date_created)
	VALUES
		(@client_id, @value, @type, @description, @date_created)
	RETURNING
		id, client_id, value, type, description, date_created`

	dbt, err := db.NamedQueryStruct[dbTransaction](ctx, s.log, s.db, q, toDBTransaction(t))
	if err != nil {
		return client.Transaction{}, err
	}

	return toTransaction(dbt), nil
}

// QueryLastTransactions returns up to limit transactions for the client,
// newest first. The id tiebreak keeps the order stable for transactions
// created in the same microsecond.
func (s *Store) QueryLastTransactions(ctx context.Context, clientID int, limit int) ([]client.Transaction, error) {
	data := struct {
		ClientID int `db:"client_id"`
		Limit    int `db:"limit"`
	}{
		ClientID: clientID,
		Limit:    limit,
	}

	const q = `
	SELECT
		id,
		client_id,
		value,
		type,
		description,
		date_created
	FROM
		transactions
	WHERE
		client_id = @client_id
	ORDER BY
		date_created DESC, id DESC
	LIMIT @limit`

	ts, err := db.NamedQuerySlice[dbTransaction](ctx, s.log, s.db, q, data)
	if err != nil {
		return nil, err
	}

	return toTransactions(ts), nil
}
