package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atendimento-dp/feedbackform/internal/discovery"
	"github.com/atendimento-dp/feedbackform/internal/form"
	"github.com/atendimento-dp/feedbackform/internal/logging"
	"github.com/atendimento-dp/feedbackform/internal/metrics"
)

// Config holds the server configuration
type Config struct {
	Addr        string // listen address, e.g. ":8080"
	Advertise   bool   // announce the server over mDNS
	ServiceName string // mDNS instance name
	Version     string // advertised in the mDNS TXT record
}

// Server serves the feedback form over HTTP and WebSocket
type Server struct {
	config   *Config
	sender   form.Sender
	metrics  *metrics.Metrics
	tmpl     *template.Template
	handler  http.Handler
	http     *http.Server
	listener net.Listener
	advert   *discovery.Advertisement

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a server submitting forms through sender. m may be nil to
// disable instrumentation.
func New(config *Config, sender form.Sender, m *metrics.Metrics) (*Server, error) {
	if sender == nil {
		return nil, errors.New("server: missing sender")
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		config:   config,
		sender:   sender,
		metrics:  m,
		tmpl:     tmpl,
		sessions: make(map[string]*session),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections on listener until Shutdown
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.http = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.http
	s.mu.Unlock()

	logging.Info("Form server listening",
		zap.String("addr", listener.Addr().String()),
	)

	if s.config.Advertise {
		if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
			advert, err := discovery.Advertise(s.config.ServiceName, tcpAddr.Port, s.config.Version)
			if err != nil {
				// The form keeps working without the announcement
				logging.Warn("mDNS advertisement failed", zap.Error(err))
			} else {
				s.mu.Lock()
				s.advert = advert
				s.mu.Unlock()
			}
		}
	}

	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listening address, or nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully shuts down the server. In-flight submissions started
// from WebSocket sessions keep running until their HTTP calls return.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	advert := s.advert
	srv := s.http
	s.advert = nil
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	advert.Shutdown()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	// Hijacked WebSocket connections are not tracked by http.Server
	for _, sess := range sessions {
		logging.Info("Closing form session", zap.String("session_id", sess.id))
		sess.close()
	}

	logging.Sync()

	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close")
	}
	return nil
}

// ActiveSessions returns the number of open WebSocket form sessions
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *Server) removeSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.id)
}
