package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

// maxRequestBody bounds a single JSON-RPC request.
const maxRequestBody = 1 << 20

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	Addr      string
	Token     string
	Allowlist string
}

// Handler serves MCP JSON-RPC requests via POST on the root path, one
// request per call. /health and /version are not guarded.
func (s *Server) Handler(guard func(http.Handler) http.Handler) http.Handler {
	if guard == nil {
		guard = func(h http.Handler) http.Handler { return h }
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		respondOK(w, version.Get())
	})
	mux.Handle("/", guard(http.HandlerFunc(s.serveRPC)))
	return mux
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req protocol.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, protocol.Response{JSONRPC: "2.0", Error: &protocol.ResponseError{Code: protocol.CodeParseError, Message: "invalid JSON"}}, http.StatusBadRequest)
		return
	}
	if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	resp, err := s.Handle(r.Context(), req)
	if err != nil {
		writeJSON(w, WriteError(req.ID, protocol.CodeInternal, "internal error", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp, http.StatusOK)
}

// ServeHTTP listens on opts.Addr until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, opts HTTPOptions) error {
	guard, err := NewGuard(opts.Token, opts.Allowlist)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(guard),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.lg.WithField("addr", opts.Addr).Info("HTTP MCP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.lg.Info("HTTP MCP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, resp protocol.Response, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}
