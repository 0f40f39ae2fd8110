package mailparse

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Message is the decoded content of an RFC 5322 message
type Message struct {
	MessageID string
	Subject   string
	From      string
	Date      time.Time
	RawDate   string
	Body      string
}

// Parse decodes headers and charsets and extracts the text body. Inline
// text/plain parts are concatenated; when there are none the HTML parts are
// converted to text. Attachments are ignored.
func Parse(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	msg := &Message{}
	h := mr.Header

	if msg.Subject, err = h.Subject(); err != nil {
		msg.Subject = h.Get("Subject")
	}
	msg.RawDate = h.Get("Date")
	if date, err := h.Date(); err == nil {
		msg.Date = date
	}
	if id, err := h.MessageID(); err == nil && id != "" {
		msg.MessageID = "<" + id + ">"
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].String()
	} else {
		msg.From = h.Get("From")
	}

	var plain, html []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep what was decoded so far
			if len(plain)+len(html) > 0 {
				break
			}
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}

		ih, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := ih.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		switch {
		case ct == "" || strings.HasPrefix(ct, "text/plain"):
			plain = append(plain, string(body))
		case strings.HasPrefix(ct, "text/html"):
			html = append(html, string(body))
		}
	}

	if len(plain) > 0 {
		msg.Body = strings.Join(plain, "\n")
	} else {
		texts := make([]string, 0, len(html))
		for _, h := range html {
			texts = append(texts, HTMLToText(h))
		}
		msg.Body = strings.Join(texts, "\n")
	}
	return msg, nil
}

// HTMLToText returns the visible text of an HTML document, one line per
// non-empty text line
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br, p, div, tr, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
