package mailbox

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/mikey/cancellation-tracker/internal/adapters/mailparse"
	"github.com/mikey/cancellation-tracker/internal/config"
	"github.com/mikey/cancellation-tracker/internal/core"
	"github.com/mikey/cancellation-tracker/internal/ports"
	"go.uber.org/zap"
)

// mailClient is the part of *client.Client the source uses
type mailClient interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
}

type dialFunc func(cfg config.IMAPConfig) (mailClient, error)

// Source retrieves messages from an IMAP mailbox
type Source struct {
	cfg    config.IMAPConfig
	logger *zap.Logger
	dial   dialFunc
	now    func() time.Time
}

var (
	_ ports.MessageSource  = (*Source)(nil)
	_ ports.MessageCounter = (*Source)(nil)
)

// NewSource creates a new IMAP message source
func NewSource(cfg config.IMAPConfig, logger *zap.Logger) *Source {
	return &Source{
		cfg:    cfg,
		logger: logger,
		dial:   dialTLS,
		now:    time.Now,
	}
}

func dialTLS(cfg config.IMAPConfig) (mailClient, error) {
	c, err := client.DialWithDialerTLS(&net.Dialer{Timeout: cfg.Timeout}, cfg.Address(), nil)
	if err != nil {
		return nil, err
	}
	c.Timeout = cfg.Timeout
	return c, nil
}

// Fetch returns the newest messages matching the criteria. Zero values in the
// criteria fall back to the configured defaults.
func (s *Source) Fetch(ctx context.Context, criteria ports.SearchCriteria) ([]core.MessageRecord, error) {
	criteria = s.withDefaults(criteria)

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.disconnect(c)

	uids, err := s.search(ctx, c, criteria)
	if err != nil {
		return nil, err
	}
	uids = newest(uids, criteria.MaxMessages)
	if len(uids) == 0 {
		return nil, nil
	}

	return s.fetch(ctx, c, uids)
}

// Count returns the number of messages received in the last days
func (s *Source) Count(ctx context.Context, days int) (int, error) {
	criteria := s.withDefaults(ports.SearchCriteria{Days: days})

	c, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer s.disconnect(c)

	uids, err := s.search(ctx, c, ports.SearchCriteria{Days: criteria.Days})
	if err != nil {
		return 0, err
	}
	return len(uids), nil
}

func (s *Source) withDefaults(criteria ports.SearchCriteria) ports.SearchCriteria {
	if criteria.Days <= 0 {
		criteria.Days = s.cfg.Days
	}
	criteria.Days = min(criteria.Days, config.MaxDays)
	if criteria.MaxMessages <= 0 {
		criteria.MaxMessages = s.cfg.MaxMessages
	}
	criteria.MaxMessages = min(criteria.MaxMessages, config.MaxMessagesLimit)
	if criteria.Sender == "" {
		criteria.Sender = s.cfg.SenderFilter
	}
	if criteria.Subject == "" {
		criteria.Subject = s.cfg.SubjectFilter
	}
	return criteria
}

func (s *Source) connect(ctx context.Context) (mailClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return nil, fmt.Errorf("IMAP credentials are not configured")
	}

	s.logger.Info("Connecting to IMAP server", zap.String("address", s.cfg.Address()))
	c, err := s.dial(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	mbox, err := c.Select(s.cfg.Folder, true)
	if err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to select mailbox %s: %w", s.cfg.Folder, err)
	}
	s.logger.Debug("Mailbox selected",
		zap.String("folder", s.cfg.Folder),
		zap.Uint32("messages", mbox.Messages))

	return c, nil
}

func (s *Source) disconnect(c mailClient) {
	if err := c.Logout(); err != nil {
		s.logger.Warn("Failed to log out from IMAP server", zap.Error(err))
	}
}

func (s *Source) search(ctx context.Context, c mailClient, criteria ports.SearchCriteria) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -criteria.Days)
	uids, err := c.UidSearch(searchCriteria(since, criteria))
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	s.logger.Info("Messages found",
		zap.Int("count", len(uids)),
		zap.String("since", since.Format("2006-01-02")),
		zap.String("sender_filter", criteria.Sender),
		zap.String("subject_filter", criteria.Subject))
	return uids, nil
}

func searchCriteria(since time.Time, criteria ports.SearchCriteria) *imap.SearchCriteria {
	sc := imap.NewSearchCriteria()
	sc.Since = since
	if criteria.Sender != "" {
		sc.Header.Add("From", criteria.Sender)
	}
	if criteria.Subject != "" {
		sc.Header.Add("Subject", criteria.Subject)
	}
	return sc
}

// newest keeps the limit highest UIDs, highest first
func newest(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func (s *Source) fetch(ctx context.Context, c mailClient, uids []uint32) ([]core.MessageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var records []core.MessageRecord
	for msg := range messages {
		if rec, ok := s.toRecord(msg, section); ok {
			records = append(records, rec)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// newest first, like the search result
	sort.SliceStable(records, func(i, j int) bool {
		a, _ := strconv.ParseUint(records[i].ID, 10, 32)
		b, _ := strconv.ParseUint(records[j].ID, 10, 32)
		return a > b
	})
	return records, nil
}

// toRecord converts a fetched message. Body decoding errors keep the
// envelope data with an empty body.
func (s *Source) toRecord(msg *imap.Message, section *imap.BodySectionName) (core.MessageRecord, bool) {
	if msg == nil || msg.Envelope == nil {
		return core.MessageRecord{}, false
	}

	rec := core.MessageRecord{
		ID:        strconv.FormatUint(uint64(msg.Uid), 10),
		MessageID: msg.Envelope.MessageId,
		Subject:   msg.Envelope.Subject,
		Timestamp: msg.Envelope.Date,
	}
	if len(msg.Envelope.From) > 0 {
		rec.Sender = msg.Envelope.From[0].Address()
	}

	body := msg.GetBody(section)
	if body == nil {
		return rec, true
	}
	parsed, err := mailparse.Parse(body)
	if err != nil {
		s.logger.Warn("Failed to decode message body",
			zap.Uint32("uid", msg.Uid),
			zap.Error(err))
		return rec, true
	}

	rec.Body = parsed.Body
	rec.RawDate = parsed.RawDate
	if parsed.Subject != "" {
		rec.Subject = parsed.Subject
	}
	if parsed.From != "" {
		rec.Sender = parsed.From
	}
	if parsed.MessageID != "" {
		rec.MessageID = parsed.MessageID
	}
	if !parsed.Date.IsZero() {
		rec.Timestamp = parsed.Date
	}
	return rec, true
}
