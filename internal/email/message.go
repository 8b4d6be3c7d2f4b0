// Package email defines the composed message handed to a delivery provider.
package email

import "time"

// Email is the payload assembled from a submitted form.
type Email struct {
	FromName    string       `json:"from_name"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	TextBody    string       `json:"text_body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	MessageID   string       `json:"message_id"`
	Date        time.Time    `json:"date"`
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Sender formats the From header value, including the display name when set.
func (e *Email) Sender() string {
	if e.FromName == "" {
		return e.From
	}
	return e.FromName + " <" + e.From + ">"
}
