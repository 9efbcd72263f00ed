// Package handlers binds the ledger core to its HTTP contract.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/credora/ledger/internal/core/client"
	"go.opentelemetry.io/otel/trace"
)

func APIMux(s *Server, tracer trace.Tracer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /clients/{id}/transactions", middlewareWeb(tracer, s.Transactions))
	mux.Handle("GET /clients/{id}/statement", middlewareWeb(tracer, s.Statement))
	mux.Handle("GET /health", middlewareWeb(tracer, s.Health))

	return mux
}

type Server struct {
	log    *slog.Logger
	client *client.Core
}

func NewServer(log *slog.Logger, c *client.Core) *Server {
	return &Server{log: log, client: c}
}

func (s *Server) Transactions(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s,
		func(ctx context.Context, id int, req TransactionsReq) (TransactionsResp, error) {
			value, err := req.Value.Int64()
			if err != nil {
				return TransactionsResp{}, fmt.Errorf("%w: value must be an integer", client.ErrInvalidArgument)
			}

			nt := client.NewTransaction{
				Value:       int(value),
				Type:        req.Type,
				Description: req.Description,
			}

			c, err := s.client.AddTransaction(ctx, id, nt)
			if err != nil {
				return TransactionsResp{}, err
			}

			return TransactionsResp{
				Limit:   c.Limit,
				Balance: c.Balance,
			}, nil
		},
	)
}

func (s *Server) Statement(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, r, s,
		func(ctx context.Context, id int, req struct{}) (StatementResp, error) {
			st, err := s.client.Statement(ctx, id)
			if err != nil {
				return StatementResp{}, err
			}

			return toStatementResp(st), nil
		},
	)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"ok":true}`))
}

func getID(r *http.Request) (int, error) {
	sID := r.PathValue("id")
	return strconv.Atoi(sID)
}

func serveJSON[Req any, Resp any](
	w http.ResponseWriter,
	r *http.Request,
	s *Server,
	fn func(ctx context.Context, id int, req Req) (Resp, error),
) {
	var req Req
	if r.Method != http.MethodGet {
		if r.Header.Get("Content-Type") != "application/json" {
			s.log.ErrorContext(r.Context(), "request must be a json")
			http.Error(w, "request must be a json", http.StatusBadRequest)
			return
		}

		err := json.NewDecoder(r.Body).Decode(&req)
		r.Body.Close()
		if err != nil {
			s.log.ErrorContext(r.Context(), "decoding json", "ERROR", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	}

	id, err := getID(r)
	if err != nil {
		s.log.ErrorContext(r.Context(), "getID", "ERROR", err)
		http.Error(w, "invalid id", http.StatusNotFound)
		return
	}

	resp, err := fn(r.Context(), id, req)
	if err != nil {
		s.log.ErrorContext(r.Context(), "fn", "ERROR", err)
		code := statusCode(err)
		msg := err.Error()
		if code == http.StatusInternalServerError {
			msg = "internal error"
		}
		http.Error(w, msg, code)
		return
	}

	bs, err := json.Marshal(resp)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to encode response", "ERROR", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(bs)
}

// statusCode maps core errors to the HTTP contract: unknown client is 404,
// every validation or business rule rejection is 422, anything else is a
// server fault.
func statusCode(err error) int {
	switch {
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, client.ErrInvalidArgument):
		return http.StatusUnprocessableEntity

	case errors.Is(err, client.ErrLimitExceeded):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
