package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"etlinspector/pkg/contracts/domain"
)

var (
	// ErrNotFound is returned when no report has the requested ID.
	ErrNotFound = errors.New("report not found")
	// ErrMissingID is returned when a report is stored without an ID.
	ErrMissingID = errors.New("report id is required")
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

// ReportRepo stores and queries reports.
type ReportRepo struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and
// migrates the schema.
func Open(path string, log *slog.Logger) (*ReportRepo, error) {
	if log == nil {
		log = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ReportRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info("Report store opened", slog.String("path", path))
	return &ReportRepo{db: db, logger: log.With(slog.String("component", "store"))}, nil
}

// Create inserts a report. The report must carry an ID.
func (r *ReportRepo) Create(ctx context.Context, report domain.Report) error {
	if report.ID == "" {
		return ErrMissingID
	}
	rec, err := newRecord(report)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert report %s: %w", report.ID, err)
	}
	return nil
}

// FindByID loads one report.
func (r *ReportRepo) FindByID(ctx context.Context, id string) (domain.Report, error) {
	var rec ReportRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Report{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("load report %s: %w", id, err)
	}
	return rec.Report()
}

// List returns the newest reports first.
func (r *ReportRepo) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var recs []ReportRecord
	err := r.db.WithContext(ctx).
		Omit("payload").
		Order("created_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]domain.ReportSummary, len(recs))
	for i, rec := range recs {
		out[i] = rec.Summary()
	}
	return out, nil
}

// CountBySeverity totals issues per severity across every stored report.
func (r *ReportRepo) CountBySeverity(ctx context.Context) (map[domain.Severity]int64, error) {
	var totals struct {
		High   int64
		Medium int64
		Low    int64
	}
	err := r.db.WithContext(ctx).Model(&ReportRecord{}).
		Select("coalesce(sum(high_count), 0) as high, coalesce(sum(medium_count), 0) as medium, coalesce(sum(low_count), 0) as low").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("count issues by severity: %w", err)
	}
	return map[domain.Severity]int64{
		domain.SeverityHigh:   totals.High,
		domain.SeverityMedium: totals.Medium,
		domain.SeverityLow:    totals.Low,
	}, nil
}

// FindByFingerprint returns the newest report for a dataset fingerprint.
func (r *ReportRepo) FindByFingerprint(ctx context.Context, fingerprint string) (domain.Report, error) {
	var rec ReportRecord
	err := r.db.WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		Order("created_at desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Report{}, fmt.Errorf("fingerprint %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("load report by fingerprint: %w", err)
	}
	return rec.Report()
}

// Ping checks the database connection.
func (r *ReportRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database.
func (r *ReportRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
