package stats

import (
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

// Report contains precomputed data for rendering and export.
type Report struct {
	Config        model.ReportConfig
	Labels        Labels
	Events        []model.NormalizedEvent
	FirstContacts []model.NormalizedEvent
	Summary       model.Summary
}

// BuildReport runs the normalize, dedup and summarize steps over raw.
func BuildReport(raw []model.RawEvent, cfg model.ReportConfig) Report {
	labels := LabelsFor(cfg.Locale)
	events := Normalize(raw, cfg)
	first := FirstContacts(events)
	return Report{
		Config:        cfg,
		Labels:        labels,
		Events:        events,
		FirstContacts: first,
		Summary:       Summarize(first, labels),
	}
}

// Empty reports whether no first contact was found.
func (r Report) Empty() bool {
	return len(r.FirstContacts) == 0
}
