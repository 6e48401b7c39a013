package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
)

func TestEditableAt(t *testing.T) {
	reportDate := date("2026-07-01")
	rejectedAt := date("2026-07-05")
	window := config.ReportsConfig{EditWindow: 48 * time.Hour}
	extending := config.ReportsConfig{EditWindow: 48 * time.Hour, RejectionExtendsWindow: true}

	tests := []struct {
		name   string
		report models.Report
		now    time.Time
		cfg    config.ReportsConfig
		want   bool
	}{
		{
			name:   "draft inside window",
			report: models.Report{Status: models.ReportStatusDraft, ReportDate: reportDate},
			now:    date("2026-07-02"),
			cfg:    window,
			want:   true,
		},
		{
			name:   "draft at window boundary",
			report: models.Report{Status: models.ReportStatusDraft, ReportDate: reportDate},
			now:    date("2026-07-03"),
			cfg:    window,
			want:   true,
		},
		{
			name:   "draft past window",
			report: models.Report{Status: models.ReportStatusDraft, ReportDate: reportDate},
			now:    date("2026-07-04"),
			cfg:    window,
			want:   false,
		},
		{
			name:   "submitted inside window",
			report: models.Report{Status: models.ReportStatusSubmitted, ReportDate: reportDate},
			now:    date("2026-07-02"),
			cfg:    window,
			want:   true,
		},
		{
			name:   "reviewed is never editable",
			report: models.Report{Status: models.ReportStatusReviewed, ReportDate: reportDate},
			now:    date("2026-07-01"),
			cfg:    window,
			want:   false,
		},
		{
			name:   "rejection re-anchors the window",
			report: models.Report{Status: models.ReportStatusDraft, ReportDate: reportDate, RejectedAt: &rejectedAt},
			now:    date("2026-07-06"),
			cfg:    extending,
			want:   true,
		},
		{
			name:   "rejection does not re-anchor when disabled",
			report: models.Report{Status: models.ReportStatusDraft, ReportDate: reportDate, RejectedAt: &rejectedAt},
			now:    date("2026-07-06"),
			cfg:    window,
			want:   false,
		},
		{
			name:   "re-anchored window still elapses",
			report: models.Report{Status: models.ReportStatusDraft, ReportDate: reportDate, RejectedAt: &rejectedAt},
			now:    date("2026-07-08"),
			cfg:    extending,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, editableAt(&tt.report, tt.now, tt.cfg))
		})
	}
}

func TestAssignmentFlags(t *testing.T) {
	sup, staff := assignmentFlags([]models.DutyCandidate{{SupervisorID: 1, Kind: models.KindSupervisor}})
	assert.True(t, sup)
	assert.False(t, staff)

	sup, staff = assignmentFlags(nil)
	assert.False(t, sup)
	assert.False(t, staff)

	sup, staff = assignmentFlags([]models.DutyCandidate{
		{SupervisorID: 1, Kind: models.KindSupervisor},
		{SupervisorID: 2, Kind: models.KindStaff},
	})
	assert.True(t, sup)
	assert.True(t, staff)
}
