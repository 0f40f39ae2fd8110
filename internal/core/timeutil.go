package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"
)

// Clock returns the current time
type Clock func() time.Time

var errNoTimestamp = errors.New("message has no timestamp")

// TimeNormalizer is the single place where message timestamps are turned into
// comparable instants. Every normalized time is in UTC.
type TimeNormalizer struct {
	now    Clock
	logger *zap.Logger
}

// NewTimeNormalizer creates a normalizer; a nil clock means time.Now
func NewTimeNormalizer(logger *zap.Logger, now Clock) *TimeNormalizer {
	if now == nil {
		now = time.Now
	}
	return &TimeNormalizer{now: now, logger: logger}
}

// Now returns the normalized current time
func (n *TimeNormalizer) Now() time.Time {
	return n.now().UTC()
}

// Normalize returns the UTC instant of the record's timestamp. When the record
// carries no usable timestamp the current time is returned with ok=false and a
// single warning is logged.
func (n *TimeNormalizer) Normalize(rec *MessageRecord) (t time.Time, ok bool) {
	t, err := resolveTimestamp(rec)
	if err != nil {
		n.logger.Warn("Failed to normalize message timestamp, using current time",
			zap.String("message_id", rec.ID),
			zap.String("raw_date", rec.RawDate),
			zap.Error(err))
		return n.Now(), false
	}
	return t.UTC(), true
}

func resolveTimestamp(rec *MessageRecord) (time.Time, error) {
	if !rec.Timestamp.IsZero() {
		return rec.Timestamp, nil
	}
	raw := strings.TrimSpace(rec.RawDate)
	if raw == "" {
		return time.Time{}, errNoTimestamp
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t, nil
	}
	return dateparse.ParseIn(raw, time.UTC)
}
