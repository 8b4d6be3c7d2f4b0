package graph

import (
	"encoding/base64"

	"github.com/shineum/mailform/internal/email"
)

// sendMailRequest is the top-level request body for the sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string           `json:"subject"`
	Body         messageBody      `json:"body"`
	ToRecipients []recipient      `json:"toRecipients"`
	ReplyTo      []recipient      `json:"replyTo,omitempty"`
	Attachments  []fileAttachment `json:"attachments,omitempty"`
	Headers      []internetHeader `json:"internetMessageHeaders,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// internetHeader is a custom X- header; Graph rejects standard header names.
type internetHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildSendMailRequest converts a composed message into a sendMail body.
// The mailbox owner sends; the form's author is set as Reply-To.
func buildSendMailRequest(msg *email.Email) *sendMailRequest {
	to := make([]recipient, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, recipient{EmailAddress: emailAddress{Address: addr}})
	}

	var replyTo []recipient
	if msg.From != "" {
		replyTo = []recipient{{EmailAddress: emailAddress{Name: msg.FromName, Address: msg.From}}}
	}

	attachments := make([]fileAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, fileAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	var headers []internetHeader
	if msg.MessageID != "" {
		headers = []internetHeader{{Name: "X-Mailform-Message-Id", Value: msg.MessageID}}
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:      msg.Subject,
			Body:         messageBody{ContentType: "text", Content: msg.TextBody},
			ToRecipients: to,
			ReplyTo:      replyTo,
			Attachments:  attachments,
			Headers:      headers,
		},
		SaveToSentItems: true,
	}
}
