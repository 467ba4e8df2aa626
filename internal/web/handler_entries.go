package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/editor"
	"github.com/vbonduro/weightlog/internal/imaging"
)

const (
	msgInvalidDate      = "Date is invalid."
	msgUnknownUnit      = "Unknown weight unit."
	msgUnsupportedPhoto = "Unsupported image format."
	msgPhotoTooLarge    = "Photo is too large."
	fieldUnit           = "unit"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":     "Entries",
		"ActiveNav": "entries",
		"Entries":   s.newEntryViews(s.entries.Chronological()),
	}
	if err := s.renderPage(w, http.StatusOK, data, "pages/entries.html"); err != nil {
		s.logger.Error("render page failed", "page", "entries", "error", err)
	}
}

func (s *Server) handleNewEntry(w http.ResponseWriter, r *http.Request) {
	loc := s.entries.Location()
	date := s.now().In(loc)
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := parseDay(v, loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		date = d
	}

	form := editor.New(date, s.displayUnit, loc)
	s.renderForm(w, http.StatusOK, form)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	form := editor.New(s.now(), s.displayUnit, s.entries.Location())
	s.saveForm(w, r, form)
}

func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entries.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.renderForm(w, http.StatusOK, editor.Edit(entry, s.entries.Location()))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entries.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.saveForm(w, r, editor.Edit(entry, s.entries.Location()))
}

// saveForm applies the submitted fields to form and saves it. Invalid input
// re-renders the form with the message in the banner.
func (s *Server) saveForm(w http.ResponseWriter, r *http.Request, form *editor.Form) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	if fe := s.applyForm(form, r); fe != nil {
		s.banner.Show(fe.Message)
		s.renderForm(w, http.StatusUnprocessableEntity, form)
		return
	}

	photo, err := s.readPhoto(r)
	if err != nil {
		if msg, ok := photoMessage(err); ok {
			s.banner.Show(msg)
			s.renderForm(w, http.StatusUnprocessableEntity, form)
			return
		}
		http.Error(w, "failed to read photo", http.StatusBadRequest)
		s.logger.Error("read upload failed", "error", err)
		return
	}

	saved, err := form.Save(r.Context(), s.entries, photo, s.now())
	var fe *editor.FieldError
	switch {
	case errors.As(err, &fe):
		s.banner.Show(fe.Message)
		s.renderForm(w, http.StatusUnprocessableEntity, form)
		return
	case errors.Is(err, domain.ErrEntryNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		s.logger.Warn("photo rejected", "entry_id", form.EntryID, "error", err)
		s.banner.Show(msgUnsupportedPhoto)
		s.renderForm(w, http.StatusUnprocessableEntity, form)
		return
	case err != nil:
		s.logger.Error("save entry failed", "entry_id", form.EntryID, "error", err)
		s.banner.Show(fmt.Sprintf("Failed to save entry: %v", err))
		s.renderForm(w, statusFor(err), form)
		return
	}

	target := "/calendar?date=" + url.QueryEscape(saved.Date.In(s.entries.Location()).Format(time.DateOnly))
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// applyForm copies the request's date, unit and measurement fields into form.
// The unit is taken as the one the weight was typed in, so no conversion
// happens here.
func (s *Server) applyForm(form *editor.Form, r *http.Request) *editor.FieldError {
	if v := r.FormValue("date"); v != "" {
		d, err := parseDay(v, s.entries.Location())
		if err != nil {
			return &editor.FieldError{Field: editor.FieldDate, Message: msgInvalidDate}
		}
		// Keep the time of day when the calendar day is unchanged.
		if !domain.SameDay(d, form.Date, s.entries.Location()) {
			form.SetDate(d)
		}
	}
	if v := r.FormValue("unit"); v != "" {
		u, err := domain.ParseWeightUnit(v)
		if err != nil {
			return &editor.FieldError{Field: fieldUnit, Message: msgUnknownUnit}
		}
		form.Unit = u
	}
	for _, f := range []editor.Field{editor.FieldWeight, editor.FieldBodyFat, editor.FieldMuscleMass, editor.FieldVisceralFat} {
		if err := form.Set(f, r.FormValue(string(f))); err != nil {
			return &editor.FieldError{Field: f, Message: err.Error()}
		}
	}
	return nil
}

func (s *Server) renderForm(w http.ResponseWriter, status int, form *editor.Form) {
	action := "/entries"
	title := "New entry"
	if form.IsEdit() {
		action = "/entries/" + url.PathEscape(form.EntryID)
		title = "Edit entry"
	}
	data := map[string]any{
		"Title":     title,
		"ActiveNav": "new",
		"Form":      form,
		"Action":    action,
		"Units":     domain.WeightUnits,
		"Today":     s.now().In(s.entries.Location()),
	}
	if form.IsEdit() {
		if entry, ok := s.entries.Get(form.EntryID); ok {
			data["HasPhoto"] = entry.HasPhoto()
		}
	}
	if err := s.renderPage(w, status, data, "pages/entry_form.html"); err != nil {
		s.logger.Error("render page failed", "page", "entry_form", "error", err)
	}
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.entries.RemoveByID(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrEntryNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		s.logger.Error("delete entry failed", "entry_id", id, "error", err)
		s.banner.Show(fmt.Sprintf("Failed to delete entry: %v", err))
	}

	if r.Method == http.MethodDelete {
		if err != nil {
			http.Error(w, "failed to delete entry", http.StatusInternalServerError)
			return
		}
		w.Header().Set("HX-Redirect", "/entries")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/entries", http.StatusSeeOther)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reader, mimeType, err := s.entries.Photo(r.Context(), id)
	if err != nil {
		if status := statusFor(err); status != http.StatusNotFound {
			s.logger.Error("open photo failed", "entry_id", id, "error", err)
			http.Error(w, "failed to open photo", status)
			return
		}
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "entry_id", id, "error", err)
	}
}
