package mimemsg

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailform/internal/email"
)

func sample() *email.Email {
	return &email.Email{
		FromName: "Jane Doe",
		From:     "jane@example.com",
		To:       []string{"a@x.com", "b@y.com"},
		Subject:  "Quarterly update",
		TextBody: "Hello everyone, see attached.",
		Attachments: []email.Attachment{
			{Filename: "report.pdf", ContentType: "application/pdf", Content: bytes.Repeat([]byte("x"), 200)},
		},
		MessageID: "<abc@mailform>",
		Date:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuild_ParsesBack(t *testing.T) {
	t.Parallel()

	raw, err := Build("noreply@mailform.test", sample())
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, "noreply@mailform.test", msg.Header.Get("From"))
	assert.Equal(t, "Jane Doe <jane@example.com>", msg.Header.Get("Reply-To"))
	assert.Equal(t, "a@x.com, b@y.com", msg.Header.Get("To"))
	assert.Equal(t, "Quarterly update", msg.Header.Get("Subject"))
	assert.Equal(t, "<abc@mailform>", msg.Header.Get("Message-Id"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])

	body, err := reader.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "Hello everyone, see attached.", string(text))

	att, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", att.Header.Get("Content-Type"))
	assert.Contains(t, att.Header.Get("Content-Disposition"), "report.pdf")

	encoded, err := io.ReadAll(att)
	require.NoError(t, err)
	for _, line := range strings.Split(string(encoded), "\r\n") {
		assert.LessOrEqual(t, len(line), lineLength)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, sample().Attachments[0].Content, decoded)

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuild_WithoutSenderOverride(t *testing.T) {
	t.Parallel()

	raw, err := Build("", sample())
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe <jane@example.com>", msg.Header.Get("From"))
	assert.Empty(t, msg.Header.Get("Reply-To"))
}
