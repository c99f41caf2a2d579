package export

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shrimpsizemoose/trekker/logger"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/campusevents/internal/app"
	"github.com/shrimpsizemoose/campusevents/internal/metrics"
	"github.com/shrimpsizemoose/campusevents/internal/models"
)

const exportTimeout = time.Minute

type ReportSource interface {
	RegistrationsReport(ctx context.Context) ([]models.EventRegistrations, error)
	AttendanceReport(ctx context.Context) ([]models.EventAttendance, error)
	FeedbackReport(ctx context.Context) ([]models.EventFeedback, error)
}

// ValuesWriter overwrites a range of a spreadsheet.
type ValuesWriter interface {
	UpdateValues(ctx context.Context, sheetID, writeRange string, values [][]interface{}) error
}

type sheetsWriter struct {
	svc *sheets.Service
}

func (w *sheetsWriter) UpdateValues(ctx context.Context, sheetID, writeRange string, values [][]interface{}) error {
	_, err := w.svc.Spreadsheets.Values.Update(sheetID, writeRange,
		&sheets.ValueRange{Values: values}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

type target struct {
	name   string
	cfg    app.GSheetConfig
	writer ValuesWriter
}

type GSheetExporter struct {
	config    *app.Config
	reports   ReportSource
	scheduler *gocron.Scheduler
	targets   []target
	now       func() time.Time
}

func NewGSheetExporter(config *app.Config, reports ReportSource) (*GSheetExporter, error) {
	ctx := context.Background()
	e := newExporter(config, reports)

	for name, cfg := range config.GSheet {
		svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets service for %s: %w", name, err)
		}
		if err := e.AddTarget(name, cfg, &sheetsWriter{svc: svc}); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func newExporter(config *app.Config, reports ReportSource) *GSheetExporter {
	return &GSheetExporter{
		config:    config,
		reports:   reports,
		scheduler: gocron.NewScheduler(time.UTC),
		now:       time.Now,
	}
}

// AddTarget schedules exports for one spreadsheet on its cron schedule.
func (e *GSheetExporter) AddTarget(name string, cfg app.GSheetConfig, writer ValuesWriter) error {
	t := target{name: name, cfg: cfg, writer: writer}

	_, err := e.scheduler.Cron(cfg.Schedule).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		if err := e.runTarget(ctx, t); err != nil {
			logger.Error.Printf("Export to %s failed: %v", t.name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export %s: %w", name, err)
	}

	e.targets = append(e.targets, t)
	return nil
}

func (e *GSheetExporter) Start() {
	e.scheduler.StartAsync()
}

func (e *GSheetExporter) Stop() {
	e.scheduler.Stop()
}

// ExportAll runs every target once, outside the schedule.
func (e *GSheetExporter) ExportAll(ctx context.Context) error {
	for _, t := range e.targets {
		if err := e.runTarget(ctx, t); err != nil {
			return fmt.Errorf("export %s: %w", t.name, err)
		}
	}
	return nil
}

func (e *GSheetExporter) runTarget(ctx context.Context, t target) error {
	err := e.export(ctx, t)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.ExportsTotal.WithLabelValues(t.name, status).Inc()
	return err
}

func (e *GSheetExporter) export(ctx context.Context, t target) error {
	if t.cfg.RegistrationsRange != "" {
		rows, err := e.reports.RegistrationsReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to build registrations report: %w", err)
		}
		if err := t.writer.UpdateValues(ctx, t.cfg.SheetID, t.cfg.RegistrationsRange, RegistrationValues(rows)); err != nil {
			return fmt.Errorf("failed to write registrations: %w", err)
		}
	}

	if t.cfg.AttendanceRange != "" {
		rows, err := e.reports.AttendanceReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to build attendance report: %w", err)
		}
		if err := t.writer.UpdateValues(ctx, t.cfg.SheetID, t.cfg.AttendanceRange, AttendanceValues(rows)); err != nil {
			return fmt.Errorf("failed to write attendance: %w", err)
		}
	}

	if t.cfg.FeedbackRange != "" {
		rows, err := e.reports.FeedbackReport(ctx)
		if err != nil {
			return fmt.Errorf("failed to build feedback report: %w", err)
		}
		if err := t.writer.UpdateValues(ctx, t.cfg.SheetID, t.cfg.FeedbackRange, FeedbackValues(rows)); err != nil {
			return fmt.Errorf("failed to write feedback: %w", err)
		}
	}

	if t.cfg.TimestampRange == "" {
		return nil
	}
	return t.writer.UpdateValues(ctx, t.cfg.SheetID, t.cfg.TimestampRange,
		[][]interface{}{{e.timestamp()}})
}

func (e *GSheetExporter) timestamp() string {
	stamp := fmt.Sprintf("UPD: %s", e.now().Format(e.config.Display.TimestampFormat))
	if variants := e.config.Display.EmojiVariants; len(variants) > 0 {
		stamp += " " + variants[rand.Intn(len(variants))]
	}
	return stamp
}

func RegistrationValues(rows []models.EventRegistrations) [][]interface{} {
	values := [][]interface{}{{"Event", "Registrations"}}
	for _, r := range rows {
		values = append(values, []interface{}{r.Event, r.Registrations})
	}
	return values
}

func AttendanceValues(rows []models.EventAttendance) [][]interface{} {
	values := [][]interface{}{{"Event", "Attendance %"}}
	for _, r := range rows {
		values = append(values, []interface{}{r.Event, r.AttendancePct})
	}
	return values
}

// FeedbackValues leaves the cell empty for events without feedback.
func FeedbackValues(rows []models.EventFeedback) [][]interface{} {
	values := [][]interface{}{{"Event", "Avg rating"}}
	for _, r := range rows {
		var avg interface{} = ""
		if r.AvgRating != nil {
			avg = *r.AvgRating
		}
		values = append(values, []interface{}{r.Event, avg})
	}
	return values
}
