// Package server exposes game sessions over HTTP with a websocket feed of
// state snapshots.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/tatianab/dungeon-crawler/internal/chronicle"
	"github.com/tatianab/dungeon-crawler/internal/dice"
	"github.com/tatianab/dungeon-crawler/internal/dungeon"
	"github.com/tatianab/dungeon-crawler/internal/game"
	"github.com/tatianab/dungeon-crawler/internal/models"
	"github.com/tatianab/dungeon-crawler/internal/play"
)

// maxBodyBytes bounds request bodies. Custom input is short prose.
const maxBodyBytes = 64 << 10

// Archive lists finished runs.
type Archive interface {
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// Server routes HTTP requests to sessions.
type Server struct {
	layout   *dungeon.Layout
	sessions *Sessions
	archive  Archive
	origins  []string
	upgrader websocket.Upgrader
}

// New returns a server. archive may be nil, in which case /runs is empty.
func New(layout *dungeon.Layout, sessions *Sessions, archive Archive, origins []string) *Server {
	s := &Server{
		layout:   layout,
		sessions: sessions,
		archive:  archive,
		origins:  origins,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// SessionView is the body returned by every session endpoint.
type SessionView struct {
	ID    string           `json:"id"`
	State models.GameState `json:"state"`
	Roll  *dice.Result     `json:"roll,omitempty"`
}

// ReelView is the end-of-run summary of a session.
type ReelView struct {
	Reel      []models.Highlight `json:"reel"`
	ImageReel []models.Highlight `json:"image_reel"`
}

type errorBody struct {
	Error string `json:"error"`
}

type credentialRequest struct {
	Field game.CredentialField `json:"field"`
	Value string               `json:"value"`
}

type classRequest struct {
	Class string `json:"class"`
}

type customRequest struct {
	Input string `json:"input"`
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Get("/classes", s.listClasses)
	r.Get("/runs", s.listRuns)
	r.Post("/sessions", s.createSession)
	r.Route("/sessions/{sessionID}", func(rr chi.Router) {
		rr.Use(s.withSession)
		rr.Get("/", s.getSession)
		rr.Get("/reel", s.getReel)
		rr.Get("/chronicle.pdf", s.getChronicle)
		rr.Get("/ws", s.watch)
		rr.Post("/credentials", s.setCredential)
		rr.Post("/class", s.startGame)
		rr.Post("/options/{optionID}", s.selectOption)
		rr.Post("/suboptions/{subID}", s.selectSubOption)
		rr.Post("/custom", s.submitCustom)
		rr.Post("/more", s.loadMore)
		rr.Post("/clear", s.clearSelection)
		rr.Post("/reset", s.reset)
		rr.Post("/retry", s.retry)
	})
	return r
}

type ctxKey struct{}

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		ctrl, ok := s.sessions.Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown session"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ctrl)))
	})
}

func controller(r *http.Request) *play.Controller {
	return r.Context().Value(ctxKey{}).(*play.Controller)
}

func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.layout.Classes)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs := []models.RunRecord{}
	if s.archive != nil {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		var err error
		runs, err = s.archive.ListRuns(r.Context(), limit)
		if err != nil {
			log.Printf("server: list runs: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not read the run archive"})
			return
		}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := s.sessions.Create()
	if err != nil {
		log.Printf("server: create session: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not create session"})
		return
	}
	writeJSON(w, http.StatusCreated, SessionView{ID: id, State: ctrl.Store().Snapshot()})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, nil)
}

func (s *Server) getReel(w http.ResponseWriter, r *http.Request) {
	h := controller(r).Store().Snapshot().Highlights
	writeJSON(w, http.StatusOK, ReelView{Reel: game.Reel(h), ImageReel: game.ImageReel(h)})
}

func (s *Server) getChronicle(w http.ResponseWriter, r *http.Request) {
	store := controller(r).Store()
	var buf bytes.Buffer
	if err := chronicle.Write(&buf, store.Snapshot(), store.Reducer().Layout()); err != nil {
		log.Printf("server: chronicle: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not render chronicle"})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="chronicle.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) setCredential(w http.ResponseWriter, r *http.Request) {
	req, err := decode[credentialRequest](w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if req.Field != game.CredentialNarrator && req.Field != game.CredentialImage {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown credential field %q", req.Field)})
		return
	}
	controller(r).SetCredential(req.Field, req.Value)
	s.respond(w, r, nil)
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	req, err := decode[classRequest](w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := controller(r).StartGame(r.Context(), req.Class); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, nil)
}

func (s *Server) selectOption(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "optionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "option id must be a number"})
		return
	}
	if err := controller(r).SelectOption(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, nil)
}

func (s *Server) selectSubOption(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "subID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "sub-option id must be a number"})
		return
	}
	roll, err := controller(r).SelectSubOption(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, &roll)
}

func (s *Server) submitCustom(w http.ResponseWriter, r *http.Request) {
	req, err := decode[customRequest](w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	roll, err := controller(r).SubmitCustomInput(r.Context(), req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	// A rejected input never rolls.
	if roll.Tier == "" {
		s.respond(w, r, nil)
		return
	}
	s.respond(w, r, &roll)
}

func (s *Server) loadMore(w http.ResponseWriter, r *http.Request) {
	if err := controller(r).LoadMore(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, nil)
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	controller(r).ClearSelection()
	s.respond(w, r, nil)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	controller(r).Reset()
	s.respond(w, r, nil)
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	if err := controller(r).Retry(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, r, nil)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, roll *dice.Result) {
	writeJSON(w, http.StatusOK, SessionView{
		ID:    chi.URLParam(r, "sessionID"),
		State: controller(r).Store().Snapshot(),
		Roll:  roll,
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.origins) == 0 {
		return true
	}
	return slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)
}

// statusFor maps controller errors to HTTP statuses. Anything unrecognized
// is a narrator failure, which the state also carries.
func statusFor(err error) int {
	switch {
	case errors.Is(err, play.ErrBusy), errors.Is(err, play.ErrNotPlaying):
		return http.StatusConflict
	case errors.Is(err, play.ErrUnknownOption):
		return http.StatusNotFound
	case errors.Is(err, play.ErrUnknownClass), errors.Is(err, play.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return v, fmt.Errorf("invalid request body: %w", err)
	}
	return v, nil
}
