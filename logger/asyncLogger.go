package logger

import (
	"context"
	"sync/atomic"

	log_model "pawsewa/models/log"
	"pawsewa/types"

	"gorm.io/gorm"
)

// AsyncLogger persists API audit entries off the request path.
type AsyncLogger struct {
	db      *gorm.DB
	channel chan types.LogEntry
	dropped atomic.Int64
}

func NewAsyncLogger(db *gorm.DB, buffer int) *AsyncLogger {
	if buffer <= 0 {
		buffer = 100
	}
	return &AsyncLogger{
		db:      db,
		channel: make(chan types.LogEntry, buffer),
	}
}

// ProcessLog drains the queue until ctx is cancelled, then flushes what is buffered.
func (l *AsyncLogger) ProcessLog(ctx context.Context) {
	Info("Starting asynchronous audit logger")
	for {
		select {
		case entry := <-l.channel:
			l.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-l.channel:
					l.write(entry)
				default:
					Info("Asynchronous audit logger stopped")
					return
				}
			}
		}
	}
}

func (l *AsyncLogger) write(entry types.LogEntry) {
	row := log_model.Log{
		Method:          entry.Method,
		URL:             entry.URL,
		ActorID:         entry.ActorID,
		RequestBody:     entry.RequestBody,
		ResponseBody:    entry.ResponseBody,
		RequestHeaders:  entry.RequestHeaders,
		ResponseHeaders: entry.ResponseHeaders,
		StatusCode:      entry.StatusCode,
		CreatedAt:       entry.CreatedAt,
	}
	if err := l.db.Create(&row).Error; err != nil {
		Error("Failed to insert audit log entry", err)
	}
}

// Log enqueues an entry. It never blocks; a full queue drops the entry.
func (l *AsyncLogger) Log(entry types.LogEntry) {
	select {
	case l.channel <- entry:
	default:
		if l.dropped.Add(1)%100 == 1 {
			Warning("Audit log queue full, dropping entries")
		}
	}
}

func (l *AsyncLogger) Dropped() int64 {
	return l.dropped.Load()
}
