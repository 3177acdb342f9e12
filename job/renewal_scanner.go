// Package job holds scheduled background work.
package job

import (
	"context"
	"fmt"
	"time"

	"helios-backend/metrics"
	"helios-backend/models"
	"helios-backend/service"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultRenewalWindow = 30 * 24 * time.Hour
	scanTimeout          = 5 * time.Minute
)

// RenewalSource lists contracts renewing in a date range.
type RenewalSource interface {
	ListRenewingBetween(ctx context.Context, from, to time.Time) ([]*models.Contract, error)
}

// Reminder is one upcoming renewal handed to a Notifier.
type Reminder struct {
	ContractID  uuid.UUID
	UserID      *uuid.UUID
	FileName    string
	RenewalDate string
	DaysLeft    int
	Tasks       []models.SuggestedTask
}

// Notifier delivers renewal reminders.
type Notifier interface {
	NotifyRenewal(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyRenewal(_ context.Context, r Reminder) error {
	fields := []zap.Field{
		zap.String("contract_id", r.ContractID.String()),
		zap.String("file", r.FileName),
		zap.String("renewal_date", r.RenewalDate),
		zap.Int("days_left", r.DaysLeft),
		zap.Int("tasks", len(r.Tasks)),
	}
	if r.UserID != nil {
		fields = append(fields, zap.String("user_id", r.UserID.String()))
	}
	n.log.Info("renewal.reminder", fields...)
	return nil
}

// RenewalScanner finds contracts renewing soon and emits reminders.
type RenewalScanner struct {
	source   RenewalSource
	notifier Notifier
	window   time.Duration
	locale   string
	now      func() time.Time
	log      *zap.Logger
}

// ScannerOption is a functional option for RenewalScanner
type ScannerOption func(*RenewalScanner)

// WithWindow sets how far ahead the scan looks
func WithWindow(d time.Duration) ScannerOption {
	return func(s *RenewalScanner) {
		s.window = d
	}
}

// WithLocale sets the locale of the regenerated tasks
func WithLocale(locale string) ScannerOption {
	return func(s *RenewalScanner) {
		s.locale = locale
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) ScannerOption {
	return func(s *RenewalScanner) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) ScannerOption {
	return func(s *RenewalScanner) {
		s.log = log
	}
}

// NewRenewalScanner creates a scanner. A nil notifier logs reminders.
func NewRenewalScanner(source RenewalSource, notifier Notifier, opts ...ScannerOption) *RenewalScanner {
	s := &RenewalScanner{
		source: source,
		window: DefaultRenewalWindow,
		locale: "en",
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if notifier == nil {
		notifier = NewLogNotifier(s.log)
	}
	s.notifier = notifier
	return s
}

// Run performs one scan and returns the number of reminders delivered.
// A failed delivery is logged and does not stop the scan.
func (s *RenewalScanner) Run(ctx context.Context) (int, error) {
	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.Add(s.window)

	contracts, err := s.source.ListRenewingBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list renewing contracts: %w", err)
	}

	sent := 0
	for _, c := range contracts {
		if c.RenewalDate == nil {
			continue
		}
		r := Reminder{
			ContractID:  c.ID,
			UserID:      c.UserID,
			FileName:    c.FileName,
			RenewalDate: c.RenewalDate.Format("2006-01-02"),
			DaysLeft:    int(c.RenewalDate.Sub(from).Hours() / 24),
			Tasks:       service.GenerateTasks(c.Analysis, s.locale, now),
		}
		if err := s.notifier.NotifyRenewal(ctx, r); err != nil {
			s.log.Warn("renewal.notify_failed",
				zap.String("contract_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		metrics.RenewalReminders.Inc()
		sent++
	}

	s.log.Info("renewal.scan.done",
		zap.Int("contracts", len(contracts)),
		zap.Int("reminders", sent),
	)
	return sent, nil
}

// Start schedules Run (standard five-field cron syntax). The caller
// stops the returned cron.
func (s *RenewalScanner) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()
		if _, err := s.Run(ctx); err != nil {
			s.log.Error("renewal.scan.failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid renewal schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
