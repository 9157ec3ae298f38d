package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})

	// AuthEvents counts signups, logins and logouts by outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_auth_events_total",
		Help: "Authentication events by type and outcome",
	}, []string{"event", "outcome"})

	// MessagesCreated counts messages posted.
	MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_messages_created_total",
		Help: "Total number of messages posted",
	})

	// SocialActions counts follow, unfollow, like and unlike actions.
	SocialActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_social_actions_total",
		Help: "Social graph and like actions by type",
	}, []string{"action"})

	// ActiveNotificationSockets tracks open notification websockets.
	ActiveNotificationSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warbler_notification_sockets_active",
		Help: "Number of open notification websocket connections",
	})

	// NotificationDrops counts events dropped for slow or closed sockets.
	NotificationDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_notification_drops_total",
		Help: "Notification events dropped before reaching a websocket",
	}, []string{"reason"})
)

const queryStartKey = "warbler:query_start"

// DatabaseMetrics records query latency through gorm callbacks.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// Register hooks latency observation into every gorm operation.
func (m *DatabaseMetrics) Register() error {
	cb := m.db.Callback()
	ops := []struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, op := range ops {
		op := op
		if err := op.before("metrics:before_"+op.name, func(tx *gorm.DB) {
			tx.InstanceSet(queryStartKey, time.Now())
		}); err != nil {
			return err
		}
		if err := op.after("metrics:after_"+op.name, func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			m.ObserveQuery(op.name, table, start)
		}); err != nil {
			return err
		}
	}
	return nil
}
