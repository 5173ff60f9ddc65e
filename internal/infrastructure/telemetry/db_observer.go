package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBObserverConfig controls query tracing and metrics.
type DBObserverConfig struct {
	Tracing           bool
	Metrics           bool
	LogFullSQL        bool          // include bound variables in spans; dev only
	SlowQueryThresh   time.Duration // defaults to 200ms
	PoolStatsInterval time.Duration // defaults to 15s
	DBSystem          string        // defaults to "postgresql"
}

func (c DBObserverConfig) withDefaults() DBObserverConfig {
	if c.SlowQueryThresh <= 0 {
		c.SlowQueryThresh = 200 * time.Millisecond
	}
	if c.PoolStatsInterval <= 0 {
		c.PoolStatsInterval = 15 * time.Second
	}
	if c.DBSystem == "" {
		c.DBSystem = "postgresql"
	}
	return c
}

// DBObserver is a gorm plugin that annotates otelgorm spans with row counts
// and slow-query markers, and records query and connection pool metrics.
type DBObserver struct {
	config DBObserverConfig
	logger *zap.Logger

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolConns      *Gauge
	poolConnsMax   *Gauge

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type dbStartKey struct{}

// NewDBObserver builds the plugin. meter may be nil when metrics are off.
func NewDBObserver(cfg DBObserverConfig, meter metric.Meter, logger *zap.Logger) (*DBObserver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &DBObserver{config: cfg.withDefaults(), logger: logger, stopCh: make(chan struct{})}
	if !cfg.Metrics {
		return o, nil
	}
	if meter == nil {
		return nil, ErrMeterNil
	}

	var err error
	if o.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if o.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if o.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the threshold", "{query}"); err != nil {
		return nil, err
	}
	if o.poolConns, err = NewGauge(meter, "db_pool_connections", "Pool connections by state", "{connection}"); err != nil {
		return nil, err
	}
	if o.poolConnsMax, err = NewGauge(meter, "db_pool_connections_max", "Pool connection limit", "{connection}"); err != nil {
		return nil, err
	}
	return o, nil
}

// Name implements gorm.Plugin.
func (o *DBObserver) Name() string { return "hms:db_observer" }

// Initialize implements gorm.Plugin.
func (o *DBObserver) Initialize(db *gorm.DB) error {
	if !o.config.Tracing && !o.config.Metrics {
		return nil
	}
	if o.config.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(o.config.DBSystem)}
		if !o.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	type registrar struct {
		name   string
		op     string // empty: detected from the SQL text
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}
	regs := []registrar{
		{"create", "INSERT", func(n string, f func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Create().After("gorm:create").Register(n, f) }},
		{"query", "SELECT", func(n string, f func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Query().After("gorm:query").Register(n, f) }},
		{"update", "UPDATE", func(n string, f func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Update().After("gorm:update").Register(n, f) }},
		{"delete", "DELETE", func(n string, f func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Register(n, f) }},
		{"row", "", func(n string, f func(*gorm.DB)) error { return cb.Row().Before("gorm:row").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Row().After("gorm:row").Register(n, f) }},
		{"raw", "", func(n string, f func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, f) },
			func(n string, f func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Register(n, f) }},
	}
	for _, r := range regs {
		op := r.op
		if err := r.before("hms_db:before_"+r.name, o.before); err != nil {
			return err
		}
		if err := r.after("hms_db:after_"+r.name, func(tx *gorm.DB) { o.after(tx, op) }); err != nil {
			return err
		}
	}

	o.logger.Info("Database observer registered",
		zap.Bool("tracing", o.config.Tracing),
		zap.Bool("metrics", o.config.Metrics),
		zap.Duration("slow_query_threshold", o.config.SlowQueryThresh),
	)
	return nil
}

func (o *DBObserver) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
}

func (o *DBObserver) after(db *gorm.DB, op string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if op == "" {
		op = detectOperationType(db.Statement.SQL.String())
	}
	var elapsed time.Duration
	if start, ok := ctx.Value(dbStartKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}
	slow := elapsed > o.config.SlowQueryThresh

	if o.config.Metrics {
		o.queryTotal.Inc(ctx, AttrDBOperation.String(op))
		o.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(op))
		if slow {
			table := db.Statement.Table
			if table == "" {
				table = "unknown"
			}
			o.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
		}
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if slow {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", o.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

func detectOperationType(query string) string {
	query = strings.ToUpper(strings.TrimSpace(query))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(query, op) {
			return op
		}
	}
	return "OTHER"
}

// StartPoolStats samples sqlDB.Stats until ctx is done or Stop is called.
func (o *DBObserver) StartPoolStats(ctx context.Context, sqlDB *sql.DB) {
	if !o.config.Metrics || sqlDB == nil {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.config.PoolStatsInterval)
		defer ticker.Stop()

		for {
			o.recordPoolStats(ctx, sqlDB.Stats())
			select {
			case <-ticker.C:
			case <-o.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (o *DBObserver) recordPoolStats(ctx context.Context, stats sql.DBStats) {
	o.poolConnsMax.Record(ctx, int64(stats.MaxOpenConnections))
	o.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	o.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	o.poolConns.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool sampling and waits for the collector to exit.
func (o *DBObserver) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		o.wg.Wait()
	})
}
