// Package mimemsg renders a composed message as an RFC 5322 / MIME document.
package mimemsg

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/shineum/mailform/internal/email"
)

// lineLength is the base64 line length from RFC 2045.
const lineLength = 76

// Build renders msg as a multipart/mixed message. sender overrides the
// envelope From; the form's sender address becomes Reply-To so replies
// reach the person who filled in the form.
func Build(sender string, msg *email.Email) ([]byte, error) {
	var buf bytes.Buffer

	from := msg.Sender()
	if sender != "" {
		from = sender
	}

	writeHeader(&buf, "From", from)
	if sender != "" && msg.From != "" {
		writeHeader(&buf, "Reply-To", msg.Sender())
	}
	if len(msg.To) > 0 {
		writeHeader(&buf, "To", strings.Join(msg.To, ", "))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("UTF-8", msg.Subject))
	if !msg.Date.IsZero() {
		writeHeader(&buf, "Date", msg.Date.Format(time.RFC1123Z))
	}
	if msg.MessageID != "" {
		writeHeader(&buf, "Message-ID", msg.MessageID)
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := make(textproto.MIMEHeader)
	bodyHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := part.Write([]byte(msg.TextBody)); err != nil {
		return nil, fmt.Errorf("failed to write body part: %w", err)
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		attHeader := make(textproto.MIMEHeader)
		attHeader.Set("Content-Type", contentType)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", mime.QEncoding.Encode("UTF-8", att.Filename)))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		if _, err := part.Write([]byte(encodeBase64WithLineBreaks(att.Content))); err != nil {
			return nil, fmt.Errorf("failed to write attachment part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", key, value)
}

func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	lines := make([]string, 0, len(encoded)/lineLength+1)
	for i := 0; i < len(encoded); i += lineLength {
		end := min(i+lineLength, len(encoded))
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
