package service

import (
	"time"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
)

// editableAt reports whether a report can still be changed: it must be DRAFT
// or SUBMITTED and the clock must be inside the configured window. The flag is
// a pure function of (report, now, config) and is evaluated at read time;
// there is no background timer to drift from.
func editableAt(report *models.Report, now time.Time, cfg config.ReportsConfig) bool {
	if report.Status != models.ReportStatusDraft && report.Status != models.ReportStatusSubmitted {
		return false
	}
	anchor := report.ReportDate
	if cfg.RejectionExtendsWindow && report.RejectedAt != nil && report.RejectedAt.After(anchor) {
		anchor = *report.RejectedAt
	}
	return !now.After(anchor.Add(cfg.EditWindow))
}
