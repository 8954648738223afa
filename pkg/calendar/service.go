package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// AuthError means the user's Google credentials are revoked or unusable
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("calendar auth error: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// APIError is a Calendar API failure (rate limit, 5xx, expired sync token)
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api error (status %d): %v", e.StatusCode, e.Err)
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

// Service builds per-user Calendar connectors from stored refresh tokens
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

// Connector is a per-user Calendar client
type Connector struct {
	svc *calendarapi.Service
}

// Connector creates a Calendar API client authorized with the user's refresh token
func (s *Service) Connector(ctx context.Context, refreshToken string) (*Connector, error) {
	if refreshToken == "" {
		return nil, &AuthError{Err: fmt.Errorf("user has no refresh token")}
	}

	oauthConfig := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendarapi.CalendarReadonlyScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := calendarapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	return &Connector{svc: svc}, nil
}

// Event is a normalized calendar event
type Event struct {
	EventID     string
	Summary     string
	Description string
	Location    string
	Organizer   string
	Attendees   []string
	Start       time.Time
	End         time.Time
	Updated     time.Time
}

// ListUpcomingEvents returns events on the primary calendar within the window
// [now, now+window), ordered by start time.
func (c *Connector) ListUpcomingEvents(ctx context.Context, window time.Duration, maxResults int64) ([]Event, error) {
	now := time.Now().UTC()

	resp, err := c.svc.Events.List("primary").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(window).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError(err)
	}

	var events []Event
	for _, item := range resp.Items {
		if item.Status == "cancelled" {
			continue
		}
		event := Event{
			EventID:     item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
			Start:       parseEventTime(item.Start),
			End:         parseEventTime(item.End),
		}
		if item.Organizer != nil {
			event.Organizer = item.Organizer.Email
		}
		for _, attendee := range item.Attendees {
			event.Attendees = append(event.Attendees, attendee.Email)
		}
		if updated, err := time.Parse(time.RFC3339, item.Updated); err == nil {
			event.Updated = updated.UTC()
		}
		events = append(events, event)
	}
	return events, nil
}

// Watch registers a webhook channel for changes on the primary calendar.
// Returns the channel's resource ID and expiry.
func (c *Connector) Watch(ctx context.Context, channelID, address, token string) (string, time.Time, error) {
	resp, err := c.svc.Events.Watch("primary", &calendarapi.Channel{
		Id:      channelID,
		Type:    "web_hook",
		Address: address,
		Token:   token,
	}).Context(ctx).Do()
	if err != nil {
		return "", time.Time{}, wrapAPIError(err)
	}

	expiry := time.UnixMilli(resp.Expiration).UTC()
	return resp.ResourceId, expiry, nil
}

// StopChannel cancels a previously registered webhook channel
func (c *Connector) StopChannel(ctx context.Context, channelID, resourceID string) error {
	err := c.svc.Channels.Stop(&calendarapi.Channel{
		Id:         channelID,
		ResourceId: resourceID,
	}).Context(ctx).Do()
	if err != nil {
		return wrapAPIError(err)
	}
	return nil
}

func parseEventTime(t *calendarapi.EventDateTime) time.Time {
	if t == nil {
		return time.Time{}
	}
	if t.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return parsed.UTC()
		}
	}
	if t.Date != "" {
		// All-day events carry a bare date
		if parsed, err := time.Parse("2006-01-02", t.Date); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
