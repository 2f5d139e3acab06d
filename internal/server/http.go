package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atendimento-dp/feedbackform/internal/feedback"
	"github.com/atendimento-dp/feedbackform/internal/form"
	"github.com/atendimento-dp/feedbackform/internal/logging"
)

// Page texts
const (
	PageTitle     = "Atendimento - DP"
	IdleLabel     = "Enviar Feedback"
	BusyLabel     = "Enviando..."
	ThanksMessage = "Obrigado pelo seu feedback!"
)

//go:embed assets/templates/*.html assets/static
var assetsFS embed.FS

// maxFormBytes bounds a POSTed form body
const maxFormBytes = 64 << 10

type fieldView struct {
	Name  string
	Label string
	Kind  feedback.InputKind
	Value string
}

type pageData struct {
	Title         string
	Fields        []fieldView
	Error         string
	Submitted     bool
	Busy          bool
	ButtonLabel   string
	IdleLabel     string
	BusyLabel     string
	ThanksMessage string
}

func parseTemplates() (*template.Template, error) {
	return template.New("").ParseFS(assetsFS, "assets/templates/*.html")
}

func newPageData(snap form.Snapshot) pageData {
	fields := make([]fieldView, 0, len(feedback.Fields))
	for _, f := range feedback.Fields {
		value, _ := snap.Record.Get(f.Name)
		fields = append(fields, fieldView{Name: f.Name, Label: f.Label, Kind: f.Kind, Value: value})
	}

	label := IdleLabel
	if snap.Busy {
		label = BusyLabel
	}

	return pageData{
		Title:         PageTitle,
		Fields:        fields,
		Error:         snap.Error,
		Submitted:     snap.Submitted,
		Busy:          snap.Busy,
		ButtonLabel:   label,
		IdleLabel:     IdleLabel,
		BusyLabel:     BusyLabel,
		ThanksMessage: ThanksMessage,
	}
}

// routes builds the HTTP router
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/", s.handleForm)
	r.Post("/", s.handleSubmit)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	static, _ := fs.Sub(assetsFS, "assets/static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	return r
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, form.NewManager().Snapshot())
}

// handleSubmit is the form instance of a plain HTML POST: one manager per
// request, filled from the body and submitted synchronously.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	manager := form.NewManager()
	for _, f := range feedback.Fields {
		_ = manager.UpdateField(f.Name, r.PostForm.Get(f.Name))
	}

	// The outcome is rendered from the snapshot; the error detail was
	// already logged by the client and the manager.
	_ = manager.Submit(r.Context(), s.sender)

	s.render(w, manager.Snapshot())
}

func (s *Server) render(w http.ResponseWriter, snap form.Snapshot) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.tmpl.ExecuteTemplate(w, "form.html", newPageData(snap)); err != nil {
		logging.Error("Failed to render form page", zap.Error(err))
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// requestLogger logs every request once it has been served
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, ww.Status(), ww.BytesWritten())
		logging.Debug("Request served",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:; base-uri 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
