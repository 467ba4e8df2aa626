package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/weightlog/internal/calendar"
	"github.com/vbonduro/weightlog/internal/domain"
)

type apiCell struct {
	Blank    bool   `json:"blank"`
	Day      int    `json:"day,omitempty"`
	Date     string `json:"date,omitempty"`
	HasEntry bool   `json:"hasEntry"`
}

type apiCalendar struct {
	Month              string    `json:"month"`
	Title              string    `json:"title"`
	DaysInMonth        int       `json:"daysInMonth"`
	FirstWeekdayOffset int       `json:"firstWeekdayOffset"`
	WeekdayLabels      []string  `json:"weekdayLabels"`
	Cells              []apiCell `json:"cells"`
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": len(s.entries.Entries()),
	})
}

// handleAPIListEntries returns entries in insertion order, which is the order
// positional deletes refer to. ?order=date sorts chronologically.
func (s *Server) handleAPIListEntries(w http.ResponseWriter, r *http.Request) {
	var entries []domain.Entry
	switch order := r.URL.Query().Get("order"); order {
	case "", "insertion":
		entries = s.entries.Entries()
	case "date":
		entries = s.entries.Chronological()
	default:
		writeError(w, http.StatusBadRequest, errors.New("order must be insertion or date"))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *Server) handleAPIEntriesOnDay(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(chi.URLParam(r, "date"), s.entries.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.entries.FindAll(day)))
}

func (s *Server) handleAPICalendar(w http.ResponseWriter, r *http.Request) {
	month, err := calendar.ParseMonth(chi.URLParam(r, "month"), s.entries.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	grid := month.Grid(s.entries.HasEntry, time.Time{})
	cells := make([]apiCell, 0, len(grid))
	for _, c := range grid {
		cell := apiCell{Blank: c.Blank, Day: c.Day, HasEntry: c.HasEntry}
		if !c.Blank {
			cell.Date = c.Date.Format(time.DateOnly)
		}
		cells = append(cells, cell)
	}

	writeJSON(w, http.StatusOK, apiCalendar{
		Month:              month.String(),
		Title:              month.Title(),
		DaysInMonth:        month.DaysInMonth(),
		FirstWeekdayOffset: month.FirstWeekdayOffset(),
		WeekdayLabels:      calendar.WeekdayLabels,
		Cells:              cells,
	})
}

func (s *Server) handleAPIRemoveAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("index must be an integer"))
		return
	}
	if err := s.entries.RemoveAt(r.Context(), index); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("remove entry failed", "index", index, "error", err)
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIRemoveBetween(w http.ResponseWriter, r *http.Request) {
	loc := s.entries.Location()
	q := r.URL.Query()
	from, err := parseDay(q.Get("from"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDay(q.Get("to"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, errors.New("from must not be after to"))
		return
	}

	n, err := s.entries.RemoveBetween(r.Context(), from, to)
	if err != nil {
		s.logger.Error("remove entries failed", "from", from, "to", to, "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func nonNil(entries []domain.Entry) []domain.Entry {
	if entries == nil {
		return []domain.Entry{}
	}
	return entries
}
