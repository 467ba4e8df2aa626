package web

import (
	"net/http"
	"time"

	"github.com/vbonduro/weightlog/internal/calendar"
)

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	loc := s.entries.Location()
	now := s.now().In(loc)
	q := r.URL.Query()

	var selected time.Time
	if v := q.Get("date"); v != "" {
		d, err := parseDay(v, loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		selected = d
	}

	var month calendar.Month
	switch v := q.Get("month"); {
	case v != "":
		m, err := calendar.ParseMonth(v, loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		month = m
	case !selected.IsZero():
		month = calendar.MonthOf(selected)
	default:
		month = calendar.MonthOf(now)
	}
	if selected.IsZero() && month.Contains(now) {
		selected = now
	}

	data := map[string]any{
		"Title":         month.Title(),
		"ActiveNav":     "calendar",
		"Month":         month,
		"Prev":          month.Prev(),
		"Next":          month.Next(),
		"WeekdayLabels": calendar.WeekdayLabels,
		"Weeks":         month.Weeks(s.entries.HasEntry, selected),
		"HasSelection":  !selected.IsZero(),
		"Selected":      selected,
	}
	if !selected.IsZero() {
		data["SelectedEntries"] = s.newEntryViews(s.entries.FindAll(selected))
		data["CanAdd"] = !selected.After(now)
	}

	if err := s.renderPage(w, http.StatusOK, data, "pages/calendar.html", "partials/entry_detail.html"); err != nil {
		s.logger.Error("render page failed", "page", "calendar", "error", err)
	}
}
