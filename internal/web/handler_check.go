package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/editor"
)

// checkResponse reports the outcome of validating one field on focus loss.
// Value is what the input should now hold; Weight carries the converted
// weight after a unit switch.
type checkResponse struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Error  string `json:"error,omitempty"`
	Weight string `json:"weight,omitempty"`
}

// handleCheckField validates a single field, or converts the weight when
// field is "unit" (with the previous unit in "from").
func (s *Server) handleCheckField(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := r.PostForm.Get("field")
	value := r.PostForm.Get("value")

	if name == fieldUnit {
		s.checkUnit(w, r, value)
		return
	}

	field, err := editor.ParseField(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	form := editor.New(s.now(), s.displayUnit, s.entries.Location())
	if err := form.Set(field, value); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := checkResponse{Field: name}
	if fe := form.Blur(field); fe != nil {
		resp.Error = fe.Message
		s.banner.Show(fe.Message)
	}
	resp.Value = form.Value(field)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) checkUnit(w http.ResponseWriter, r *http.Request, value string) {
	to, err := domain.ParseWeightUnit(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	from, err := domain.ParseWeightUnit(r.PostForm.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("from must name the previous unit"))
		return
	}

	form := editor.New(s.now(), from, s.entries.Location())
	if err := form.Set(editor.FieldWeight, r.PostForm.Get("weight")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := form.SetUnit(to); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Field: fieldUnit, Value: to.String(), Weight: form.Weight})
}

func (s *Server) handleDismissBanner(w http.ResponseWriter, r *http.Request) {
	s.banner.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}
