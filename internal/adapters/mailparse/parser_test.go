package mailparse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: Kundenservice <service@shop.de>\r\n" +
	"To: orders@example.com\r\n" +
	"Subject: =?UTF-8?Q?R=C3=BCckgabe_Bestellung?=\r\n" +
	"Date: Mon, 10 Jun 2024 09:30:00 +0200\r\n" +
	"Message-ID: <abc123@shop.de>\r\n" +
	"Content-Type: text/plain; charset=ISO-8859-1\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Bitte die R=FCckgabe best=E4tigen.\r\n"

const multipartMessage = "From: buyer@example.com\r\n" +
	"Subject: Storno\r\n" +
	"Date: Tue, 11 Jun 2024 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{}</style></head><body><p>Bitte <b>stornieren</b></p><p>Danke</p></body></html>\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=rechnung.pdf\r\n" +
	"\r\n" +
	"%PDF-1.4 cancel refund\r\n" +
	"--XYZ--\r\n"

func TestParsePlain(t *testing.T) {
	msg, err := Parse(strings.NewReader(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "Rückgabe Bestellung", msg.Subject)
	assert.Contains(t, msg.From, "service@shop.de")
	assert.Equal(t, "<abc123@shop.de>", msg.MessageID)
	assert.Equal(t, "Mon, 10 Jun 2024 09:30:00 +0200", msg.RawDate)
	assert.True(t, msg.Date.Equal(time.Date(2024, 6, 10, 7, 30, 0, 0, time.UTC)))
	assert.Contains(t, msg.Body, "Bitte die Rückgabe bestätigen.")
}

func TestParseHTMLFallbackSkipsAttachments(t *testing.T) {
	msg, err := Parse(strings.NewReader(multipartMessage))
	require.NoError(t, err)

	assert.Equal(t, "Storno", msg.Subject)
	assert.Equal(t, "Bitte stornieren\nDanke", msg.Body)
	assert.NotContains(t, msg.Body, "refund")
	assert.Empty(t, msg.MessageID)
}

func TestHTMLToText(t *testing.T) {
	html := `<div>Order <script>var x;</script>cancelled</div><br><ul><li>Item 1</li><li>Item 2</li></ul>`
	assert.Equal(t, "Order cancelled\nItem 1\nItem 2", HTMLToText(html))
}
