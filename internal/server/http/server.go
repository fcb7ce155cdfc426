package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/battlelog/internal/runtime"
	"github.com/rzbill/battlelog/internal/server/http/controllers"
	battlesvc "github.com/rzbill/battlelog/internal/services/battles"
	logpkg "github.com/rzbill/battlelog/pkg/log"
)

// RequestIDHeader carries the per-request id, accepted from the client or generated.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

func New(rt *runtime.Runtime, svc *battlesvc.Service, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	logger = logger.With(logpkg.Component("http"))
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, svc, logger).RegisterAllRoutes(mux)
	s := &Server{rt: rt, logger: logger}
	s.srv = &http.Server{
		Handler:           cors(s.requestScope(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logpkg.ToStdLogger(logger, logpkg.WarnLevel),
	}
	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requestScope assigns a request id, attaches a tagged logger to the request
// context and logs completion.
func (s *Server) requestScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)
		l := s.logger.With(logpkg.Str(logpkg.RequestIDKey, reqID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(logpkg.NewContext(r.Context(), l)))
		l.Debug("request",
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
			logpkg.Int("status", rec.status),
			logpkg.Duration("dur_ms", time.Since(start)))
	})
}
