package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/pkg/utils"
)

type chatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Answer    string `json:"answer"`
	Grounded  bool   `json:"grounded"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	s.logger.Debug("chat request",
		zap.String("session_id", req.SessionID),
		zap.String("user_id", req.UserID),
		zap.String("message", utils.Truncate(req.Message, 120)))

	ans := s.engine.Answer(r.Context(), req.Message, req.UserID)
	s.respondJSON(w, http.StatusOK, chatResponse{
		Answer:    ans.Text,
		Grounded:  ans.Grounded,
		SessionID: req.SessionID,
	})
}

type trainRequest struct {
	UserID string `json:"user_id,omitempty"`
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	scope := models.GlobalScope()
	if req.UserID != "" {
		scope = models.UserScope(req.UserID)
	}
	s.logger.Debug("train request", zap.String("scope", scope.String()))

	idx, err := s.indexes.Rebuild(r.Context(), scope)
	if err != nil {
		s.logger.Error("training failed", zap.String("scope", scope.String()), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"scope":  scope.String(),
		"chunks": idx.Len(),
		"status": "trained",
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, err := s.store.Profile(models.UserScope(userID))
	if err != nil {
		s.logger.Error("profile read failed", zap.String("user_id", userID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profile == nil {
		s.respondError(w, http.StatusNotFound, "no profile for user")
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUserScopes()
	if err != nil {
		s.logger.Error("user listing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if users == nil {
		users = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUserScopes()
	if err != nil {
		s.logger.Error("status: user listing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	globalProfile, err := s.store.Profile(models.GlobalScope())
	if err != nil {
		s.logger.Error("status: global profile failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"global_trained": globalProfile != nil,
		"user_count":     len(users),
		"config": map[string]interface{}{
			"vendor":         s.config.Provider.Vendor,
			"top_k":          s.config.Answer.TopK,
			"min_similarity": s.config.Answer.MinSimilarity,
			"chunk_size":     s.config.Answer.ChunkSize,
			"store_dir":      s.store.Dir(),
		},
	}
	if globalProfile != nil {
		resp["global_chunks"] = globalProfile.TotalChunks
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
