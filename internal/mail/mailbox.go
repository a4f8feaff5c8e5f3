package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
)

// maxBodySize caps the body text included in a read result.
const maxBodySize = 32 * 1024

// maxRawMessageSize caps how much of the raw RFC822 literal is
// buffered. The remainder is drained to keep the IMAP stream in sync.
const maxRawMessageSize = 5 * 1024 * 1024

// Status reports the inbox message counters.
func (c *Client) Status(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return "", err
	}

	data, err := c.selectInbox()
	if err != nil {
		return "", err
	}

	unseen := 0
	searchData, err := c.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err == nil {
		unseen = len(searchData.AllUIDs())
	}

	return fmt.Sprintf("Inbox: %d messages, %d unread.", data.NumMessages, unseen), nil
}

// List returns a numbered listing of the most recent inbox messages.
// The numbers shown are the message identifiers accepted by Read.
func (c *Client) List(ctx context.Context, limit int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return "", err
	}

	envelopes, err := c.listEnvelopes(limit)
	if err != nil {
		return "", err
	}
	if len(envelopes) == 0 {
		return "The inbox is empty.", nil
	}

	var sb strings.Builder
	for _, env := range envelopes {
		marker := " "
		if !env.Seen {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s #%d %s — %s (%s)\n",
			marker, env.UID, env.From, env.Subject,
			env.Date.Format("2006-01-02 15:04"))
	}
	sb.WriteString("\nUnread messages are marked with *. Use mail_read with the # number to read one.")
	return sb.String(), nil
}

// Read fetches one message by the number shown in List and returns its
// headers and text body.
func (c *Client) Read(ctx context.Context, seq uint32) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return "", err
	}

	if _, err := c.selectInbox(); err != nil {
		return "", err
	}

	uidSet := imap.UIDSet{}
	uidSet.AddNum(imap.UID(seq))

	fetchCmd := c.client.Fetch(uidSet, &imap.FetchOptions{
		UID:      true,
		Envelope: true,
		Flags:    true,
		BodySection: []*imap.FetchItemBodySection{
			{Peek: false}, // reading means read
		},
	})

	msg := fetchCmd.Next()
	if msg == nil {
		_ = fetchCmd.Close()
		return "", fmt.Errorf("message #%d not found", seq)
	}

	var result Message
	var rawBody []byte

	for {
		item := msg.Next()
		if item == nil {
			break
		}

		switch data := item.(type) {
		case imapclient.FetchItemDataUID:
			result.UID = uint32(data.UID)
		case imapclient.FetchItemDataEnvelope:
			if data.Envelope != nil {
				result.Date = data.Envelope.Date
				result.Subject = data.Envelope.Subject
				if len(data.Envelope.From) > 0 {
					result.From = formatAddress(data.Envelope.From[0])
				}
				for _, addr := range data.Envelope.To {
					result.To = append(result.To, formatAddress(addr))
				}
			}
		case imapclient.FetchItemDataBodySection:
			// Consume the literal immediately; msg.Next() advances past
			// unread literals, so deferring the read loses the body.
			if data.Literal == nil {
				continue
			}
			var readErr error
			rawBody, readErr = io.ReadAll(io.LimitReader(data.Literal, maxRawMessageSize))
			drainLiteral(data.Literal)
			if readErr != nil {
				c.logger.Debug("error reading body literal", "uid", seq, "error", readErr)
				rawBody = nil
			}
		}
	}

	if rawBody != nil {
		if err := parseBody(&result, bytes.NewReader(rawBody)); err != nil {
			c.logger.Debug("body parse error", "uid", seq, "error", err)
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return "", fmt.Errorf("fetch message #%d: %w", seq, err)
	}

	return formatMessage(&result), nil
}

func formatMessage(m *Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\n", m.From)
	if len(m.To) > 0 {
		fmt.Fprintf(&sb, "To: %s\n", strings.Join(m.To, ", "))
	}
	fmt.Fprintf(&sb, "Date: %s\n", m.Date.Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "Subject: %s\n\n", m.Subject)

	switch {
	case m.TextBody != "":
		sb.WriteString(m.TextBody)
	case m.HTMLBody != "":
		sb.WriteString(m.HTMLBody)
	default:
		sb.WriteString("(no readable body)")
	}
	return sb.String()
}

// parseBody walks the MIME structure and extracts text content.
//
// go-message's CreateReader and NextPart may return both a valid
// reader/part AND an error when the message uses an unknown charset.
// Those are non-fatal: the content may be slightly garbled but is
// still useful.
func parseBody(m *Message, r io.Reader) error {
	mailReader, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return fmt.Errorf("create mail reader: %w", err)
	}
	if mailReader == nil {
		if err != nil {
			return fmt.Errorf("create mail reader returned nil: %w", err)
		}
		return fmt.Errorf("create mail reader returned nil")
	}

	for {
		part, err := mailReader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return fmt.Errorf("next part: %w", err)
		}
		if part == nil {
			continue
		}

		var contentType string
		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ = h.ContentType()
		case *gomail.AttachmentHeader:
			continue
		default:
			continue
		}

		switch {
		case contentType == "text/plain" && m.TextBody == "":
			m.TextBody = readPart(part.Body)
		case contentType == "text/html" && m.HTMLBody == "":
			m.HTMLBody = readPart(part.Body)
		}
	}
	return nil
}

func readPart(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return ""
	}
	text := string(body)
	if len(body) > maxBodySize {
		text = text[:maxBodySize] + "\n\n[truncated — message exceeds 32KB]"
	}
	return strings.TrimSpace(text)
}
