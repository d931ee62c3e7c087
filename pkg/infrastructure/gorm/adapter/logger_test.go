package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordedEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	entries []recordedEntry
}

func (r *recordingLogger) record(level, msg string, fields map[string]interface{}) {
	r.entries = append(r.entries, recordedEntry{level: level, msg: msg, fields: fields})
}

func (r *recordingLogger) Info(_ context.Context, msg string, f map[string]interface{}) {
	r.record("info", msg, f)
}
func (r *recordingLogger) Debug(_ context.Context, msg string, f map[string]interface{}) {
	r.record("debug", msg, f)
}
func (r *recordingLogger) Warn(_ context.Context, msg string, f map[string]interface{}) {
	r.record("warn", msg, f)
}
func (r *recordingLogger) Error(_ context.Context, msg string, f map[string]interface{}) {
	r.record("error", msg, f)
}
func (r *recordingLogger) Trace(_ context.Context, msg string, f map[string]interface{}) {
	r.record("trace", msg, f)
}

func TestGormLoggerTrace(t *testing.T) {
	rec := &recordingLogger{}
	logger := NewGormLogger(rec, 50*time.Millisecond)
	ctx := context.Background()
	sql := func() (string, int64) { return `SELECT * FROM "trips"`, 1 }

	logger.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, rec.entries, "fast queries are not logged at warn level")

	logger.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	logger.Trace(ctx, time.Now(), sql, errors.New("connection reset"))
	logger.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)

	if assert.Len(t, rec.entries, 2) {
		assert.Equal(t, "warn", rec.entries[0].level)
		assert.Equal(t, "slow query", rec.entries[0].msg)
		assert.Equal(t, "error", rec.entries[1].level)
		assert.Equal(t, "connection reset", rec.entries[1].fields["error"])
	}
}

func TestGormLoggerLogMode(t *testing.T) {
	rec := &recordingLogger{}
	logger := NewGormLogger(rec, 0)

	logger.LogMode(gormlogger.Silent).Error(context.Background(), "hidden %d", 1)
	logger.LogMode(gormlogger.Info).Info(context.Background(), "migrated %s", "trips")

	if assert.Len(t, rec.entries, 1) {
		assert.Equal(t, "migrated trips", rec.entries[0].msg)
	}
}
