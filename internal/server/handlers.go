package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/creative-composer/internal/db"
	"github.com/jonathan/creative-composer/internal/server/middleware"
	"github.com/jonathan/creative-composer/internal/types"
)

// stageTimeout bounds background stage execution kicked off by a handler.
const stageTimeout = 10 * time.Minute

// createRunRequest is the POST /runs body. The product image travels
// inline; larger assets go through POST /assets first.
type createRunRequest struct {
	ImageBase64 string              `json:"image_base64"`
	ImageFormat string              `json:"image_format,omitempty"`
	Attributes  types.RunAttributes `json:"attributes"`
}

type editRunRequest struct {
	Spec *types.CompositionSpec `json:"spec"`
}

type uploadAssetRequest struct {
	DataBase64  string `json:"data_base64"`
	ContentType string `json:"content_type"`
}

// handleCreateRun opens a run and compiles it in the background. The
// response is the run in its created state; clients poll GET /runs/{id}.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := middleware.GetReviewerID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "image_base64 is not valid base64"})
		return
	}

	record, err := s.orchestrator.CreateRun(r.Context(), reviewerID, imageData, req.ImageFormat, req.Attributes)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.compileAsync(record.ID)
	s.jsonResponse(w, http.StatusAccepted, record)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := middleware.GetReviewerID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := s.orchestrator.ListRuns(r.Context(), reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if records == nil {
		records = []db.RunRecord{}
	}
	s.jsonResponse(w, http.StatusOK, records)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reviewerID, id, ok := s.runRequest(w, r)
	if !ok {
		return
	}

	record, err := s.orchestrator.GetRun(r.Context(), id, reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

// handleApproveRun freezes the draft and starts generation in the
// background.
func (s *Server) handleApproveRun(w http.ResponseWriter, r *http.Request) {
	reviewerID, id, ok := s.runRequest(w, r)
	if !ok {
		return
	}

	record, err := s.orchestrator.Approve(r.Context(), id, reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stageTimeout)
		defer cancel()
		if _, err := s.orchestrator.Generate(ctx, record.ID); err != nil {
			log.Printf("generate failed for run %s: %v", record.ID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, record)
}

func (s *Server) handleEditRun(w http.ResponseWriter, r *http.Request) {
	reviewerID, id, ok := s.runRequest(w, r)
	if !ok {
		return
	}

	var req editRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Spec == nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "request must carry a full spec"})
		return
	}

	record, err := s.orchestrator.Edit(r.Context(), id, reviewerID, req.Spec)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	reviewerID, id, ok := s.runRequest(w, r)
	if !ok {
		return
	}

	record, err := s.orchestrator.Cancel(r.Context(), id, reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

// handleRegenerateRun opens a fresh run from a finished one and compiles
// it in the background.
func (s *Server) handleRegenerateRun(w http.ResponseWriter, r *http.Request) {
	reviewerID, id, ok := s.runRequest(w, r)
	if !ok {
		return
	}

	fresh, err := s.orchestrator.Regenerate(r.Context(), id, reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.compileAsync(fresh.ID)
	s.jsonResponse(w, http.StatusAccepted, fresh)
}

func (s *Server) handleGetCreative(w http.ResponseWriter, r *http.Request) {
	reviewerID, id, ok := s.runRequest(w, r)
	if !ok {
		return
	}

	data, err := s.orchestrator.Creative(r.Context(), id, reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	record, err := s.orchestrator.GetRun(r.Context(), id, reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	contentType := "image/png"
	if record.CreativeRef != nil && strings.HasSuffix(*record.CreativeRef, ".jpg") {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	reviewerID, id, ok := s.runRequest(w, r)
	if !ok {
		return
	}

	revisions, err := s.orchestrator.ListRevisions(r.Context(), id, reviewerID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if revisions == nil {
		revisions = []db.SpecRevision{}
	}
	s.jsonResponse(w, http.StatusOK, revisions)
}

// handleUploadAsset stores a logo or other asset and returns its handle
// for use in run attributes.
func (s *Server) handleUploadAsset(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.GetReviewerID(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req uploadAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.DataBase64)
	if err != nil || len(data) == 0 {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "data_base64 is not valid base64"})
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ext := "bin"
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 && parts[1] != "" {
		ext = parts[1]
	}

	key := fmt.Sprintf("assets/%s.%s", uuid.New(), ext)
	handle, err := s.blobs.Put(r.Context(), key, contentType, data)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"handle": handle})
}

// runRequest extracts the reviewer ID and run ID shared by the per-run
// handlers.
func (s *Server) runRequest(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	reviewerID, err := middleware.GetReviewerID(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return "", uuid.Nil, false
	}
	return reviewerID, id, true
}

func (s *Server) compileAsync(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stageTimeout)
		defer cancel()
		if _, err := s.orchestrator.Compile(ctx, id); err != nil {
			log.Printf("compile failed for run %s: %v", id, err)
		}
	}()
}
