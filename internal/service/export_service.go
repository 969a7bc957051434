package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-appointment-api/internal/dto"
	"github.com/noah-isme/sma-appointment-api/internal/models"
	appErrors "github.com/noah-isme/sma-appointment-api/pkg/errors"
	"github.com/noah-isme/sma-appointment-api/pkg/export"
)

var exportHeaders = []string{"ID", "Date", "Slot", "Status", "Teacher", "Teacher Email", "Student", "Student Email", "Subject", "Created At"}

type adminViewer interface {
	ForAdmin(ctx context.Context, actor models.Actor, filter AdminFilter) (AppointmentView, error)
}

// ExportConfig gates and bounds exports.
type ExportConfig struct {
	Enabled bool
	MaxRows int
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders the filtered admin view as CSV or PDF.
type ExportService struct {
	query     adminViewer
	config    ExportConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(query adminViewer, config ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if config.MaxRows <= 0 {
		config.MaxRows = 5000
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{query: query, config: config, validator: validate, logger: logger, now: time.Now}
}

// Request validates an export query string and returns the admin filter and format.
func (s *ExportService) Request(q dto.ExportQuery) (AdminFilter, export.Format, error) {
	normalizeAdminQuery(&q.AdminAppointmentsQuery)
	q.Format = strings.ToLower(strings.TrimSpace(q.Format))
	if err := s.validator.Struct(q); err != nil {
		return AdminFilter{}, "", invalidQuery(err)
	}
	filter, err := parseAdminFilter(q.AdminAppointmentsQuery)
	if err != nil {
		return AdminFilter{}, "", err
	}
	format, err := export.ParseFormat(q.Format)
	if err != nil {
		return AdminFilter{}, "", invalidQuery(err)
	}
	return filter, format, nil
}

// Export renders the admin view selected by filter.
func (s *ExportService) Export(ctx context.Context, actor models.Actor, filter AdminFilter, format export.Format) (*ExportFile, error) {
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled")
	}
	view, err := s.query.ForAdmin(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	if len(view.Items) > s.config.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("export has %d rows, narrow the filter to at most %d", len(view.Items), s.config.MaxRows))
	}

	table := export.Table{
		Title:   "Appointments " + s.now().UTC().Format(models.DateLayout),
		Headers: exportHeaders,
		Rows:    make([][]string, 0, len(view.Items)),
	}
	for _, a := range view.Items {
		teacher := ""
		if a.TeacherUsername != nil {
			teacher = *a.TeacherUsername
		}
		table.Rows = append(table.Rows, []string{
			a.ID,
			a.Date.String(),
			a.Slot.Range(),
			string(a.Status),
			teacher,
			a.TeacherEmail,
			a.StudentUsername,
			a.StudentEmail,
			a.Subject,
			a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	body, err := export.ForFormat(format).Render(table)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("appointments exported", zap.String("format", string(format)), zap.Int("rows", len(table.Rows)), zap.String("actor", actor.Email))
	return &ExportFile{
		Filename:    "appointments-" + strconv.FormatInt(s.now().Unix(), 10) + "." + string(format),
		ContentType: format.ContentType(),
		Body:        body,
		Rows:        len(table.Rows),
	}, nil
}
