package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"broker-backoffice/internal/attachments"
	"broker-backoffice/internal/backoffice"
	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/intent"
	"broker-backoffice/internal/models"

	"github.com/go-chi/chi/v5"
)

// ==========================
// Contact form
// ==========================

// submitContact accepts the multipart contact form. Field names follow the
// public site: nome, email, telefone, produto, mensagem, anexos.
func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, apperrors.NewInvalidInputError("malformed form: "+err.Error()))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	form := backoffice.ContactForm{
		Name:    r.FormValue("nome"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("telefone"),
		Product: r.FormValue("produto"),
		Message: r.FormValue("mensagem"),
		PageURL: r.FormValue("pagina"),
	}
	if form.PageURL == "" {
		form.PageURL = r.Referer()
	}

	files, closeFiles, err := formFiles(r, "anexos")
	if err != nil {
		writeError(w, apperrors.NewInvalidInputError(err.Error()))
		return
	}
	defer closeFiles()
	form.Files = files

	result, err := s.svc.SubmitContactForm(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// formFiles opens every part named field. The returned func closes them.
func formFiles(r *http.Request, field string) ([]attachments.File, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	if r.MultipartForm == nil {
		return nil, closeAll, nil
	}

	var files []attachments.File
	for _, fh := range r.MultipartForm.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		files = append(files, attachments.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return files, closeAll, nil
}

// ==========================
// Intent assistant
// ==========================

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	models.Suggestion
	Navigable bool `json:"navigable"`
}

func (s *Server) classifyIntent(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if intent.IsBlank(req.Text) {
		writeError(w, apperrors.NewInvalidInputError(intent.ErrEmptyInput.Error()))
		return
	}
	suggestion := s.svc.Classifier.Classify(req.Text)
	writeJSON(w, http.StatusOK, classifyResponse{Suggestion: suggestion, Navigable: suggestion.Navigable()})
}

// ==========================
// Diagnostic sessions
// ==========================

func (s *Server) createDiagnostic(w http.ResponseWriter, r *http.Request) {
	sess := s.svc.Diagnostics.Create()
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) diagnostic(w http.ResponseWriter, r *http.Request) (*intent.Session, bool) {
	sess, err := s.svc.Diagnostics.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.NewResourceNotFoundError("diagnostics", err.Error()))
		return nil, false
	}
	return sess, true
}

func (s *Server) getDiagnostic(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.diagnostic(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// submitDiagnostic starts an analysis. With ?wait=true the response is held
// until the result is ready, bounded by ?timeout= seconds (default 5).
func (s *Server) submitDiagnostic(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.diagnostic(w, r)
	if !ok {
		return
	}
	var req classifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	switch err := sess.Submit(req.Text); {
	case errors.Is(err, intent.ErrEmptyInput):
		writeError(w, apperrors.NewInvalidInputError(err.Error()))
		return
	case errors.Is(err, intent.ErrAnalysisInFlight):
		writeJSON(w, http.StatusConflict, errorBody{Code: "ANALYSIS_IN_FLIGHT", Message: err.Error()})
		return
	case err != nil:
		writeError(w, apperrors.NewResourceNotFoundError("diagnostics", err.Error()))
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, sess.Snapshot())
		return
	}

	timeout := 5
	if v, err := strconv.Atoi(r.URL.Query().Get("timeout")); err == nil && v > 0 {
		timeout = v
	}
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeout)*time.Second)
	defer cancel()

	snap, err := sess.Await(ctx)
	if err != nil {
		writeJSON(w, http.StatusAccepted, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) resetDiagnostic(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.diagnostic(w, r)
	if !ok {
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteDiagnostic(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Diagnostics.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, apperrors.NewResourceNotFoundError("diagnostics", err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
