package core

import (
	"strings"
	"testing"
	"time"

	"github.com/mikey/cancellation-tracker/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// filler is long enough to disable the short body bonus and contains no keyword
var filler = strings.Repeat("lorem ", 100)

func newTestAnalyzer(t *testing.T) *MessageAnalyzer {
	t.Helper()
	templates, err := NewTemplateExtractor(DefaultSubjectTemplates, DefaultBodyTemplates)
	require.NoError(t, err)
	return NewMessageAnalyzer(
		NewKeywordCatalog(DefaultKeywordLists()),
		templates,
		utils.NewTextProcessor(zap.NewNop()),
		zap.NewNop(),
		AnalyzerOptions{Thresholds: DefaultThresholds(), Clock: fixedClock},
	)
}

func newTestService(t *testing.T, workers int, store ResultStore, observer BatchObserver, senders SenderFilter) *CancellationService {
	t.Helper()
	return NewCancellationService(
		newTestAnalyzer(t),
		utils.NewTextProcessor(zap.NewNop()),
		store,
		observer,
		senders,
		zap.NewNop(),
		ServiceOptions{Workers: workers, Clock: fixedClock},
	)
}

func oldTimestamp() time.Time {
	return testNow.AddDate(0, -1, 0)
}
