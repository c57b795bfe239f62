package data

import (
	"context"
	"time"

	"castgate/internal/model"
	dberrors "castgate/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// RequestEventRow is the GORM model for the request_events table.
type RequestEventRow struct {
	ID          int64     `gorm:"primaryKey;column:id"`
	Endpoint    string    `gorm:"column:endpoint;type:varchar(32);not null;index"`
	CacheHit    bool      `gorm:"column:cache_hit;not null"`
	Status      int       `gorm:"column:status;not null"`
	DurationMs  int64     `gorm:"column:duration_ms;not null"`
	ResultCount int       `gorm:"column:result_count;default:0;not null"`
	Country     string    `gorm:"column:country;type:varchar(2)"`
	RequestID   string    `gorm:"column:request_id;type:varchar(16);index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (RequestEventRow) TableName() string {
	return "request_events"
}

// AnalyticsSinkImpl implements biz.AnalyticsSink. Events flow through a
// buffered channel to a writer goroutine; the enqueue never blocks request
// handling and drops with a warning when the buffer is full. A failed write
// never fails a request.
type AnalyticsSinkImpl struct {
	db        *gorm.DB
	eventChan chan *RequestEventRow
	logger    *log.Helper
}

// NewAnalyticsSink creates the analytics sink. With a nil DB (analytics
// database not configured) every record is a no-op.
func NewAnalyticsSink(db *gorm.DB, logger log.Logger) *AnalyticsSinkImpl {
	s := &AnalyticsSinkImpl{
		db:        db,
		eventChan: make(chan *RequestEventRow, 1000), // buffer to absorb bursts
		logger:    log.NewHelper(logger),
	}

	if db != nil {
		go s.start()
	}

	return s
}

// start drains the event channel into the database. Transient failures get
// one retry; everything else is dropped, the event stream is loss-tolerant.
func (s *AnalyticsSinkImpl) start() {
	for row := range s.eventChan {
		ctx := context.Background()
		err := s.db.WithContext(ctx).Create(row).Error
		if err != nil && dberrors.IsRetryable(err) {
			err = s.db.WithContext(ctx).Create(row).Error
		}
		if err != nil {
			dbErr := dberrors.ClassifyDBError(err)
			s.logger.Errorw("failed to write request event",
				"endpoint", row.Endpoint,
				"request_id", row.RequestID,
				"error_type", dbErr.Type.String(),
				"error", err)
		} else {
			s.logger.Debugw("request event written",
				"endpoint", row.Endpoint,
				"request_id", row.RequestID)
		}
	}
}

// Record enqueues one completed-request event. Non-blocking and loss-tolerant.
func (s *AnalyticsSinkImpl) Record(event *model.RequestEvent) {
	if s.db == nil || event == nil {
		return
	}

	row := &RequestEventRow{
		Endpoint:    event.Endpoint,
		CacheHit:    event.CacheHit,
		Status:      event.Status,
		DurationMs:  event.DurationMs,
		ResultCount: event.ResultCount,
		Country:     event.Country,
		RequestID:   event.RequestID,
		CreatedAt:   event.CreatedAt,
	}

	select {
	case s.eventChan <- row:
		// Successfully queued
	default:
		s.logger.Warnw("analytics channel full, dropping event",
			"endpoint", row.Endpoint,
			"request_id", row.RequestID)
	}
}
