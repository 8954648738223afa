package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// AuthError means the user's Google credentials are revoked or unusable.
// Callers stop syncing this user rather than retrying.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("gmail auth error: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// APIError is a Gmail API failure (rate limit, 5xx, stale history cursor).
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gmail api error (status %d): %v", e.StatusCode, e.Err)
}
func (e *APIError) Unwrap() error { return e.Err }

func wrapAPIError(err error) error {
	if gErr, ok := err.(*googleapi.Error); ok {
		if gErr.Code == 401 || gErr.Code == 403 {
			return &AuthError{Err: err}
		}
		return &APIError{StatusCode: gErr.Code, Err: err}
	}
	return &APIError{Err: err}
}

// Service builds per-user Gmail connectors from stored refresh tokens
type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Connector is a per-user Gmail client
type Connector struct {
	svc *gmailapi.Service
}

// Connector creates a Gmail API client authorized with the user's refresh token
func (s *Service) Connector(ctx context.Context, refreshToken string) (*Connector, error) {
	if refreshToken == "" {
		return nil, &AuthError{Err: fmt.Errorf("user has no refresh token")}
	}

	oauthConfig := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	return &Connector{svc: svc}, nil
}

// Address is a parsed email address
type Address struct {
	Name  string
	Email string
}

// MessageDetail is one message within a thread
type MessageDetail struct {
	MessageID string
	Sender    Address
	To        []Address
	Cc        []Address
	Subject   string
	BodyPlain string
	BodyHTML  string
	Date      time.Time
	Labels    []string
}

// ThreadDetail is a full thread with all its messages
type ThreadDetail struct {
	ThreadID string
	Messages []MessageDetail
}

// ThreadSummary identifies a thread from a list call
type ThreadSummary struct {
	ThreadID string
	Snippet  string
}

// ListThreadsResult is one page of thread summaries
type ListThreadsResult struct {
	Threads       []ThreadSummary
	NextPageToken string
}

// ListThreads lists thread summaries matching a Gmail search query
func (c *Connector) ListThreads(ctx context.Context, query string, maxResults int64, pageToken string) (*ListThreadsResult, error) {
	call := c.svc.Users.Threads.List("me").Q(query).MaxResults(maxResults).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}

	result := &ListThreadsResult{NextPageToken: resp.NextPageToken}
	for _, t := range resp.Threads {
		result.Threads = append(result.Threads, ThreadSummary{ThreadID: t.Id, Snippet: t.Snippet})
	}
	return result, nil
}

// GetThread fetches a full thread with decoded message bodies
func (c *Connector) GetThread(ctx context.Context, threadID string) (*ThreadDetail, error) {
	thread, err := c.svc.Users.Threads.Get("me", threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}

	detail := &ThreadDetail{ThreadID: thread.Id}
	for _, msg := range thread.Messages {
		detail.Messages = append(detail.Messages, parseMessage(msg))
	}
	return detail, nil
}

// HistoryResult lists threads touched since a history cursor
type HistoryResult struct {
	HistoryID      string
	ThreadIDsAdded []string
}

// ListHistory returns thread IDs with new messages since startHistoryID.
// A 404 APIError means the cursor is too old and the watch must be re-registered.
func (c *Connector) ListHistory(ctx context.Context, startHistoryID uint64) (*HistoryResult, error) {
	result := &HistoryResult{}
	seen := make(map[string]bool)

	pageToken := ""
	for {
		call := c.svc.Users.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, wrapAPIError(err)
		}

		if resp.HistoryId > 0 {
			result.HistoryID = fmt.Sprintf("%d", resp.HistoryId)
		}
		for _, record := range resp.History {
			for _, added := range record.MessagesAdded {
				if added.Message == nil || seen[added.Message.ThreadId] {
					continue
				}
				seen[added.Message.ThreadId] = true
				result.ThreadIDsAdded = append(result.ThreadIDsAdded, added.Message.ThreadId)
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return result, nil
}

// Watch registers a Pub/Sub push watch on the user's inbox.
// Returns the baseline history ID and the watch expiry.
func (c *Connector) Watch(ctx context.Context, topicName string) (string, time.Time, error) {
	resp, err := c.svc.Users.Watch("me", &gmailapi.WatchRequest{
		TopicName:           topicName,
		LabelIds:            []string{"INBOX"},
		LabelFilterBehavior: "INCLUDE",
	}).Context(ctx).Do()
	if err != nil {
		return "", time.Time{}, wrapAPIError(err)
	}

	expiry := time.UnixMilli(resp.Expiration).UTC()
	return fmt.Sprintf("%d", resp.HistoryId), expiry, nil
}

// Stop cancels the active watch on the user's inbox
func (c *Connector) Stop(ctx context.Context) error {
	if err := c.svc.Users.Stop("me").Context(ctx).Do(); err != nil {
		return wrapAPIError(err)
	}
	return nil
}

func parseMessage(msg *gmailapi.Message) MessageDetail {
	detail := MessageDetail{
		MessageID: msg.Id,
		Labels:    msg.LabelIds,
		Date:      time.UnixMilli(msg.InternalDate).UTC(),
	}

	if msg.Payload == nil {
		return detail
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			detail.Sender = parseAddress(header.Value)
		case "to":
			detail.To = parseAddressList(header.Value)
		case "cc":
			detail.Cc = parseAddressList(header.Value)
		case "subject":
			detail.Subject = header.Value
		case "date":
			if parsed, err := mail.ParseDate(header.Value); err == nil {
				detail.Date = parsed.UTC()
			}
		}
	}

	plain, html := extractBodies(msg.Payload)
	detail.BodyPlain = plain
	detail.BodyHTML = html
	return detail
}

func parseAddress(raw string) Address {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return Address{Email: strings.TrimSpace(raw)}
	}
	return Address{Name: addr.Name, Email: addr.Address}
}

func parseAddressList(raw string) []Address {
	parsed, err := mail.ParseAddressList(raw)
	if err != nil {
		return []Address{{Email: strings.TrimSpace(raw)}}
	}
	var addrs []Address
	for _, a := range parsed {
		addrs = append(addrs, Address{Name: a.Name, Email: a.Address})
	}
	return addrs
}

// extractBodies walks the MIME tree collecting the first text/plain and
// text/html parts.
func extractBodies(part *gmailapi.MessagePart) (plain, html string) {
	if part.Body != nil && part.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			switch part.MimeType {
			case "text/plain":
				plain = string(decoded)
			case "text/html":
				html = string(decoded)
			}
		}
	}

	for _, child := range part.Parts {
		childPlain, childHTML := extractBodies(child)
		if plain == "" {
			plain = childPlain
		}
		if html == "" {
			html = childHTML
		}
	}
	return plain, html
}
