package web

import (
	"strconv"

	"github.com/vbonduro/weightlog/internal/domain"
)

// entryView decorates an entry with display strings for templates.
type entryView struct {
	domain.Entry
	WeightLabel        string
	DisplayWeightLabel string
	BodyFatLabel       string
	MuscleMassLabel    string
}

func (s *Server) newEntryView(e domain.Entry) entryView {
	v := entryView{
		Entry:           e,
		WeightLabel:     domain.FormatWeight(e.Weight) + " " + e.WeightUnit.String(),
		BodyFatLabel:    percentLabel(e.BodyFatPercent),
		MuscleMassLabel: percentLabel(e.MuscleMassPercent),
	}
	if e.WeightUnit != s.displayUnit {
		converted := domain.ConvertWeight(e.Weight, e.WeightUnit, s.displayUnit)
		v.DisplayWeightLabel = domain.FormatWeight(converted) + " " + s.displayUnit.String()
	}
	return v
}

func (s *Server) newEntryViews(entries []domain.Entry) []entryView {
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, s.newEntryView(e))
	}
	return views
}

func percentLabel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}
