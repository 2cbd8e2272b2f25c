// Package devserver implements the chat-storage HTTP contract for
// local development and tests: SQLite-backed session storage, a
// Gemini-shaped stub completion route, and a websocket change feed.
package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/harshdhankhar10/bucketwings-chat/internal/devserver/store"
	mw "github.com/harshdhankhar10/bucketwings-chat/internal/middleware"
	"github.com/harshdhankhar10/bucketwings-chat/internal/model/chat"
	"github.com/harshdhankhar10/bucketwings-chat/internal/watch"
)

// Server handles the chat-storage routes.
type Server struct {
	store  *store.SQLiteStore
	token  string
	hub    *hub
	logger *zap.Logger
}

// New builds a server around st. Requests must present token verbatim
// in the Authorization header; an empty token disables the check for
// test setups.
func New(st *store.SQLiteStore, token string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  st,
		token:  token,
		hub:    newHub(logger),
		logger: logger,
	}
}

// Router assembles the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mw.CORS)

	r.Route("/api/v1/aiChat", func(api chi.Router) {
		api.Use(s.requireAuth)
		api.Get("/all", s.handleListSessions)
		api.Post("/new", s.handleCreateSession)
		api.Get("/watch", s.hub.serve)
		api.Get("/{sessionID}", s.handleListMessages)
		api.Post("/{sessionID}", s.handleAppendMessage)
		api.Delete("/{sessionID}", s.handleDeleteSession)
	})

	// Stub completion endpoint so the generative client can run
	// end-to-end offline.
	r.Post("/v1beta/models/{model}:generateContent", s.handleStubCompletion)

	return r
}

// requireAuth compares the raw Authorization header against the
// configured token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != s.token {
			respondError(w, http.StatusUnauthorized, "invalid or missing credential")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.CreateSession(r.Context())
	if err != nil {
		s.logger.Error("create session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.hub.broadcast(watch.Event{Type: watch.EventSessionCreated, SessionID: session.ID})
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.store.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("delete session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	s.hub.broadcast(watch.Event{Type: watch.EventSessionDeleted, SessionID: sessionID})
	respondJSON(w, http.StatusOK, map[string]string{"message": "chat deleted"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := s.store.ListMessages(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("list messages failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var msg chat.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	if err := s.store.AppendMessage(r.Context(), sessionID, msg); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("append message failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	s.hub.broadcast(watch.Event{Type: watch.EventMessageAppended, SessionID: sessionID})
	respondJSON(w, http.StatusCreated, msg)
}

// handleStubCompletion echoes the prompt back in the generateContent
// response shape.
func (s *Server) handleStubCompletion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt := ""
	if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		prompt = req.Contents[0].Parts[0].Text
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]string{
						{"text": fmt.Sprintf("dev completion for: %s", prompt)},
					},
				},
			},
		},
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already written; an encode failure here has no
	// recovery path.
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
