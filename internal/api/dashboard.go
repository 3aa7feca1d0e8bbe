package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"broker-backoffice/internal/attachments"
	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/models"
	"broker-backoffice/internal/pipeline"
	"broker-backoffice/internal/vault"

	"github.com/go-chi/chi/v5"
)

const (
	recentLeads       = 5
	defaultSearchSize = 50
)

// ==========================
// Pipeline board
// ==========================

type boardResponse struct {
	Lanes  []pipeline.Lane `json:"lanes"`
	Recent []models.Lead   `json:"recent"`
	Demo   bool            `json:"demo"`
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, boardResponse{
		Lanes:  s.svc.Board.Lanes(),
		Recent: s.svc.Board.Recent(recentLeads),
		Demo:   s.svc.Demo(),
	})
}

func (s *Server) searchLeads(w http.ResponseWriter, r *http.Request) {
	size := defaultSearchSize
	if v, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && v > 0 {
		size = v
	}
	leads, err := s.svc.SearchLeads(r.Context(), r.URL.Query().Get("q"), size)
	if err != nil {
		writeError(w, err)
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leads": leads, "total": len(leads)})
}

type moveRequest struct {
	Status string `json:"status"`
}

// moveLead accepts a lane id or its label. Moving to quoted answers with
// the open proposal step instead of moving.
func (s *Server) moveLead(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	target, ok := models.ParseLeadStatus(req.Status)
	if !ok {
		writeError(w, apperrors.NewInvalidLeadStatusError(req.Status))
		return
	}
	res, err := s.svc.Board.MoveLead(r.Context(), chi.URLParam(r, "id"), target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type reorderRequest struct {
	TargetID string `json:"targetId"`
}

func (s *Server) reorderLead(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.Board.Reorder(r.Context(), chi.URLParam(r, "id"), req.TargetID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// attachProposal confirms the proposal step. Form fields: valor (required)
// and an optional arquivo file uploaded to the attachment store.
func (s *Server) attachProposal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, apperrors.NewInvalidInputError("malformed form: "+err.Error()))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	id := chi.URLParam(r, "id")
	value := strings.TrimSpace(r.FormValue("valor"))
	if value == "" {
		writeError(w, apperrors.NewInvalidInputError("proposal value is required"))
		return
	}
	if _, ok := s.svc.Board.Lead(id); !ok {
		writeError(w, apperrors.NewLeadNotFoundError(id))
		return
	}

	files, closeFiles, err := formFiles(r, "arquivo")
	if err != nil {
		writeError(w, apperrors.NewInvalidInputError(err.Error()))
		return
	}
	defer closeFiles()

	fileURL := ""
	if len(files) > 0 {
		up, err := s.svc.Attachments.Upload(r.Context(), fmt.Sprintf("proposal_%s", id), files[0])
		if errors.Is(err, attachments.ErrTooLarge) {
			writeError(w, apperrors.NewInvalidInputError(err.Error()))
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		fileURL = up.URL
	}

	lead, err := s.svc.Board.AttachProposal(r.Context(), id, value, fileURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) cancelProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.svc.Board.CancelProposal(id) {
		writeError(w, apperrors.NewResourceNotFoundError("pipeline", "no open proposal for lead "+id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ==========================
// Document vault
// ==========================

// vaultListing lists the current folder, or the folder named by ?folder=
// without moving the user's breadcrumbs.
func (s *Server) vaultListing(w http.ResponseWriter, r *http.Request) {
	browser := s.svc.VaultFor(identityFrom(r.Context()))
	var (
		listing vault.Listing
		err     error
	)
	if folder := r.URL.Query().Get("folder"); folder != "" {
		listing, err = browser.ListChildren(r.Context(), folder)
	} else {
		listing, err = browser.Refresh(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) vaultFilter(w http.ResponseWriter, r *http.Request) {
	entries := s.svc.VaultFor(identityFrom(r.Context())).Filter(r.URL.Query().Get("q"))
	if entries == nil {
		entries = []models.FileSystemEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) vaultOpen(w http.ResponseWriter, r *http.Request) {
	opened, err := s.svc.VaultFor(identityFrom(r.Context())).NavigateInto(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opened)
}

func (s *Server) vaultBreadcrumb(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, apperrors.NewInvalidInputError("breadcrumb index must be a number"))
		return
	}
	listing, err := s.svc.VaultFor(identityFrom(r.Context())).NavigateToBreadcrumb(r.Context(), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) vaultNextPage(w http.ResponseWriter, r *http.Request) {
	listing, err := s.svc.VaultFor(identityFrom(r.Context())).NextPage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) vaultRefresh(w http.ResponseWriter, r *http.Request) {
	listing, err := s.svc.VaultFor(identityFrom(r.Context())).Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// ==========================
// CRM
// ==========================

type syncRequest struct {
	Since string `json:"since"`
}

func (s *Server) syncCRM(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	var since time.Time
	if req.Since != "" {
		t, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			writeError(w, apperrors.NewInvalidInputError("since must be RFC3339"))
			return
		}
		since = t
	}

	summary, err := s.svc.SyncExternal(r.Context(), since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
