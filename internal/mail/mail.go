// Package mail gives the agent read access to the user's linked IMAP
// account. It wraps go-imap/v2 with automatic reconnection and
// mutex-serialized access, and formats results as plain text for tool
// output.
package mail

import (
	"io"
	"time"

	"github.com/emersion/go-imap/v2"
)

// Envelope is the summary metadata for one message, as shown in
// listings.
type Envelope struct {
	// UID is the IMAP unique identifier within the folder.
	UID uint32

	// Date is the message's Date header.
	Date time.Time

	// From is the sender, formatted as "Name <addr>" or just the address.
	From string

	// Subject is the message subject line.
	Subject string

	// Seen reports whether the message carries the \Seen flag.
	Seen bool
}

// Message is a fully fetched message with its text body extracted from
// the MIME structure.
type Message struct {
	Envelope

	// To is the list of recipients.
	To []string

	// TextBody is the plain-text body. Preferred over HTMLBody for
	// model consumption.
	TextBody string

	// HTMLBody is the raw HTML body, kept only as a fallback when no
	// text part exists.
	HTMLBody string
}

// drainLiteral reads and discards an IMAP literal so the stream stays
// in sync when a body section is fetched but not consumed.
func drainLiteral(r imap.LiteralReader) {
	if r == nil {
		return
	}
	_, _ = io.Copy(io.Discard, r)
}
