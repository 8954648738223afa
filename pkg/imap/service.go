package imap

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Service fetches recent mail over IMAP for accounts without a Gmail
// connection.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Credentials are per-user IMAP settings
type Credentials struct {
	Host     string // host:port, e.g. "imap.example.com:993"
	Username string
	Password string
}

// MailMessage is a normalized fetched message
type MailMessage struct {
	MessageID   string
	SenderName  string
	SenderEmail string
	Subject     string
	BodyText    string
	Date        time.Time
}

// FetchSince returns messages in INBOX received on or after since.
func (s *Service) FetchSince(creds Credentials, since time.Time) ([]MailMessage, error) {
	c, err := client.DialTLS(creds.Host, nil)
	if err != nil {
		return nil, fmt.Errorf("IMAP dial failed: %w", err)
	}
	defer c.Logout()

	if err := c.Login(creds.Username, creds.Password); err != nil {
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("IMAP select failed: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var result []MailMessage
	for msg := range messages {
		parsed, err := parseMessage(msg, section)
		if err != nil {
			log.Printf("[IMAP] skipping unparseable message: %v", err)
			continue
		}
		result = append(result, parsed)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %w", err)
	}
	return result, nil
}

func parseMessage(msg *imap.Message, section *imap.BodySectionName) (MailMessage, error) {
	parsed := MailMessage{Date: msg.InternalDate}

	if env := msg.Envelope; env != nil {
		parsed.Subject = env.Subject
		parsed.MessageID = env.MessageId
		if !env.Date.IsZero() {
			parsed.Date = env.Date
		}
		if len(env.From) > 0 {
			parsed.SenderName = env.From[0].PersonalName
			parsed.SenderEmail = env.From[0].Address()
		}
	}
	if parsed.MessageID == "" {
		return parsed, fmt.Errorf("message has no Message-ID")
	}

	body := msg.GetBody(section)
	if body == nil {
		return parsed, nil
	}

	reader, err := mail.CreateReader(body)
	if err != nil {
		return parsed, fmt.Errorf("could not parse MIME body: %w", err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return parsed, fmt.Errorf("could not read MIME part: %w", err)
		}

		if header, ok := part.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := header.ContentType()
			if strings.HasPrefix(contentType, "text/plain") && parsed.BodyText == "" {
				raw, _ := io.ReadAll(part.Body)
				parsed.BodyText = string(raw)
			}
		}
	}

	return parsed, nil
}
