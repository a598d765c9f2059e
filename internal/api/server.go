package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/lockstake/staking-engine/internal/config"
	"github.com/lockstake/staking-engine/internal/observability/tracing"
	"github.com/lockstake/staking-engine/internal/services"
)

const (
	requestTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg    *config.ApiConfig
	svc    *services.Service
	faucet FaucetFunc
}

type Option func(*Server)

// WithFaucet enables the operator-gated /v1/faucet endpoint. Only wired in
// local mode, where the in-memory asset ledger is the source of truth and
// accounts have no other way to obtain stakeable balance.
func WithFaucet(f FaucetFunc) Option {
	return func(s *Server) { s.faucet = f }
}

func New(cfg *config.ApiConfig, svc *services.Service, opts ...Option) *Server {
	s := &Server{cfg: cfg, svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(traceMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/stake", s.handleStake)
		r.Post("/unstake", s.handleUnstake)
		r.Post("/claim", s.handleClaim)
		r.Post("/claim-for", s.handleClaimFor)
		r.Post("/exit", s.handleExit)
		r.Get("/positions/{account}", s.handleGetPosition)
		r.Get("/pool", s.handleGetPool)
		if s.faucet != nil {
			r.Post("/faucet", s.handleFaucet)
		}
	})

	return r
}

// Start serves the API until ctx is done, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      s.Router(),
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.InjectTraceID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
