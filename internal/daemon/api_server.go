package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/sign"
)

const defaultHistoryLimit = 50

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// newAPIServer returns nil when no bind address is configured.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Use(requireToken(strings.TrimSpace(cfg.Paths.APIToken)))
		r.Post("/jt", srv.handlePlay)
		r.Post("/off", srv.handleOff)
		r.Post("/on", srv.handleResume)
		r.Post("/message", srv.handleMessage)
		r.Post("/preset", srv.handlePreset)
		r.Get("/animations", srv.handleAnimations)
		r.Get("/presets", srv.handlePresets)
		r.Get("/status", srv.handleStatus)
		r.Get("/history", srv.handleHistory)
	})

	// Play responses wait for the job to drain through the queue, which can
	// take several send timeouts; no write deadline.
	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.daemon.Play(r.Context(), req.Name)
	s.writeResult(w, res, err)
}

func (s *apiServer) handleOff(w http.ResponseWriter, r *http.Request) {
	res, err := s.daemon.Off(r.Context())
	s.writeResult(w, res, err)
}

func (s *apiServer) handleResume(w http.ResponseWriter, r *http.Request) {
	res, err := s.daemon.Resume(r.Context())
	s.writeResult(w, res, err)
}

func (s *apiServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string `json:"text"`
		Color      string `json:"color"`
		Background string `json:"background"`
		Speed      int    `json:"speed"`
		Brightness int    `json:"brightness"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.daemon.Message(r.Context(), sign.TextSpec{
		Text:       req.Text,
		Color:      req.Color,
		Background: req.Background,
		Speed:      req.Speed,
		Brightness: req.Brightness,
	})
	s.writeResult(w, res, err)
}

func (s *apiServer) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.daemon.Preset(r.Context(), req.Name, req.Text)
	s.writeResult(w, res, err)
}

func (s *apiServer) handleAnimations(w http.ResponseWriter, r *http.Request) {
	entries, err := s.daemon.Animations()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"animations": entries})
}

func (s *apiServer) handlePresets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"presets": PresetEntries(s.daemon.Presets())})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, FromStatus(s.daemon.Status()))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid history limit")
			return
		}
		limit = parsed
	}
	records, err := s.daemon.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, FromHistoryRecord(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// writeResult maps job outcomes onto HTTP codes: synchronous rejections get
// 4xx, a sign-side failure gets 502 with the result in the body.
func (s *apiServer) writeResult(w http.ResponseWriter, res sign.Result, err error) {
	if err != nil {
		s.writeError(w, statusForError(err), err.Error())
		return
	}
	code := http.StatusOK
	if !res.OK {
		code = http.StatusBadGateway
	}
	s.writeJSON(w, code, FromResult(res))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, sign.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, sign.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sign.ErrNothingToResume):
		return http.StatusConflict
	case errors.Is(err, sign.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, sign.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		s.writeError(w, http.StatusBadRequest, "request body required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
