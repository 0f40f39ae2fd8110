package eml

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mikey/cancellation-tracker/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rawMessage(from, subject, date, body string) string {
	return "From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: " + date + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n"
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRead(t *testing.T) {
	raw := rawMessage("shop@example.de", "Stornierung", "Fri, 14 Jun 2024 10:00:00 +0200", "Bitte stornieren.")

	rec, err := Read(strings.NewReader(raw), "stdin")
	require.NoError(t, err)
	assert.Equal(t, "stdin", rec.ID)
	assert.Equal(t, "Stornierung", rec.Subject)
	assert.Contains(t, rec.Sender, "shop@example.de")
	assert.Contains(t, rec.Body, "Bitte stornieren.")
	assert.Equal(t, "Fri, 14 Jun 2024 10:00:00 +0200", rec.RawDate)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.eml", rawMessage("kunde@example.de", "Rückgabe", "Thu, 13 Jun 2024 09:00:00 +0000", "Rückgabe bitte"))
	writeFile(t, dir, "a.eml", rawMessage("shop@example.de", "Storno", "Fri, 14 Jun 2024 09:00:00 +0000", "Storno"))
	writeFile(t, dir, "c.eml", rawMessage("shop@example.de", "Alt", "Mon, 01 Jan 2024 09:00:00 +0000", "alt"))
	writeFile(t, dir, "notes.txt", "not a message")
	single := writeFile(t, t.TempDir(), "single.msg", rawMessage("x@example.com", "Cancel", "Fri, 14 Jun 2024 09:00:00 +0000", "cancel"))

	r := NewReader([]string{dir, single}, zap.NewNop())
	r.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	t.Run("all files in order", func(t *testing.T) {
		records, err := r.Fetch(context.Background(), ports.SearchCriteria{})
		require.NoError(t, err)
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		assert.Equal(t, []string{"a.eml", "b.eml", "c.eml", "single.msg"}, ids)
	})

	t.Run("filters", func(t *testing.T) {
		records, err := r.Fetch(context.Background(), ports.SearchCriteria{Sender: "SHOP", Days: 30})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "a.eml", records[0].ID)

		records, err = r.Fetch(context.Background(), ports.SearchCriteria{Subject: "rück"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "b.eml", records[0].ID)
	})

	t.Run("max messages", func(t *testing.T) {
		records, err := r.Fetch(context.Background(), ports.SearchCriteria{MaxMessages: 2})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

func TestFetchMissingPath(t *testing.T) {
	r := NewReader([]string{filepath.Join(t.TempDir(), "missing")}, zap.NewNop())
	_, err := r.Fetch(context.Background(), ports.SearchCriteria{})
	assert.Error(t, err)
}
