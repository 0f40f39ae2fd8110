package eml

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mikey/cancellation-tracker/internal/adapters/mailparse"
	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/mikey/cancellation-tracker/internal/ports"
	"go.uber.org/zap"
)

// Reader loads messages from .eml files and directories of them
type Reader struct {
	paths  []string
	logger *zap.Logger
	now    func() time.Time
}

var _ ports.MessageSource = (*Reader)(nil)

// NewReader creates a reader over the given files and directories
func NewReader(paths []string, logger *zap.Logger) *Reader {
	return &Reader{
		paths:  paths,
		logger: logger,
		now:    time.Now,
	}
}

// Fetch reads every message and applies the criteria filters. Unreadable
// files are logged and skipped.
func (r *Reader) Fetch(ctx context.Context, criteria ports.SearchCriteria) ([]core.MessageRecord, error) {
	files, err := r.files()
	if err != nil {
		return nil, err
	}

	var records []core.MessageRecord
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.readFile(path)
		if err != nil {
			r.logger.Warn("Failed to read message file", zap.String("path", path), zap.Error(err))
			continue
		}
		if !r.matches(rec, criteria) {
			continue
		}
		records = append(records, rec)
		if criteria.MaxMessages > 0 && len(records) >= criteria.MaxMessages {
			break
		}
	}

	r.logger.Info("Message files loaded",
		zap.Int("files", len(files)),
		zap.Int("messages", len(records)))
	return records, nil
}

func (r *Reader) files() ([]string, error) {
	var files []string
	for _, p := range r.paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.eml"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

func (r *Reader) readFile(path string) (core.MessageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.MessageRecord{}, err
	}
	defer f.Close()
	return Read(f, filepath.Base(path))
}

func (r *Reader) matches(rec core.MessageRecord, criteria ports.SearchCriteria) bool {
	if criteria.Sender != "" && !containsFold(rec.Sender, criteria.Sender) {
		return false
	}
	if criteria.Subject != "" && !containsFold(rec.Subject, criteria.Subject) {
		return false
	}
	if criteria.Days > 0 && !rec.Timestamp.IsZero() {
		since := r.now().AddDate(0, 0, -criteria.Days)
		if rec.Timestamp.Before(since) {
			return false
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Read decodes a single message. id identifies the message in results.
func Read(in io.Reader, id string) (core.MessageRecord, error) {
	msg, err := mailparse.Parse(in)
	if err != nil {
		return core.MessageRecord{}, err
	}
	return core.MessageRecord{
		ID:        id,
		MessageID: msg.MessageID,
		Subject:   msg.Subject,
		Sender:    msg.From,
		Body:      msg.Body,
		Timestamp: msg.Date,
		RawDate:   msg.RawDate,
	}, nil
}
