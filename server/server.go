package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/colorfulnotion/moonbase/common"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/ethereum/go-ethereum/event"
	"golang.org/x/sync/errgroup"
)

// Server exposes read-only token queries over HTTP and streams engine events
// to websocket clients.
type Server struct {
	engine *token.Engine
	hub    *Hub
	mux    *http.ServeMux

	transfers chan token.TransferEvent
	fees      chan token.FeeEvent
	tsub      event.Subscription
	fsub      event.Subscription
}

type balanceResponse struct {
	Address common.Address `json:"address"`
	Balance string         `json:"balance"`
	Symbol  string         `json:"symbol"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Seq     uint64 `json:"seq"`
	Clients int    `json:"clients"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(ctx context.Context, engine *token.Engine) *Server {
	s := &Server{
		engine: engine,
		hub:    NewHub(ctx),
		mux:    http.NewServeMux(),

		transfers: make(chan token.TransferEvent, sendBuffer),
		fees:      make(chan token.FeeEvent, sendBuffer),
	}
	// subscribe before Start so no event published after New is missed
	s.tsub = engine.SubscribeTransfers(s.transfers)
	s.fsub = engine.SubscribeFees(s.fees)
	s.mux.HandleFunc("GET /token", s.handleToken)
	s.mux.HandleFunc("GET /balance/{address}", s.handleBalance)
	s.mux.HandleFunc("GET /account/{address}", s.handleAccount)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ws", s.hub.ServeWs)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Hub() *Hub { return s.hub }

// Start runs the hub and forwards engine events to it until ctx ends. A
// Server is started once.
func (s *Server) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run()
		return nil
	})
	g.Go(func() error {
		defer s.hub.Stop()
		return s.pumpEvents(gctx)
	})
	return g.Wait()
}

// ListenAndServe serves addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.Start(gctx)
	})
	g.Go(func() error {
		log.Info(module, "token server started", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Stop()
		return srv.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	log.Info(module, "token server stopped")
	return err
}

func (s *Server) pumpEvents(ctx context.Context) error {
	defer s.tsub.Unsubscribe()
	defer s.fsub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.transfers:
			if err := s.hub.Broadcast(MethodTransfer, ev); err != nil {
				log.Warn(module, "broadcast transfer", "seq", ev.Seq, "err", err)
			}
		case ev := <-s.fees:
			if err := s.hub.Broadcast(MethodFees, ev); err != nil {
				log.Warn(module, "broadcast fees", "seq", ev.Seq, "err", err)
			}
		case err := <-s.tsub.Err():
			// engine closed
			return err
		case err := <-s.fsub.Err():
			return err
		}
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Info())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		Address: addr,
		Balance: s.engine.BalanceOf(addr).Dec(),
		Symbol:  s.engine.Symbol(),
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.AccountInfo(addr))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Seq:     s.engine.Seq(),
		Clients: s.hub.ClientCount(),
	})
}

func pathAddress(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, err := common.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return addr, false
	}
	return addr, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn(module, "write response", "err", err)
	}
}
