// Package events turns GitHub webhook payloads into the release contexts the
// webhook server acts on.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/go-github/v58/github"
)

const EventRelease = "release"

// Release actions that announce a new visible release.
const (
	ActionPublished = "published"
	ActionCreated   = "created"
)

// ReleaseContext is a parsed release webhook.
type ReleaseContext struct {
	DeliveryID     string
	Action         string
	Tag            string
	Repository     string // owner/name
	Sender         string
	InstallationID int64
	Draft          bool
	Prerelease     bool
	Timestamp      time.Time

	RawEvent *github.ReleaseEvent
}

// ShouldReformat reports whether the release was just made visible and its
// notes should be regrouped.
func (c *ReleaseContext) ShouldReformat() bool {
	if c.Tag == "" || c.Draft {
		return false
	}
	return c.Action == ActionPublished || c.Action == ActionCreated
}

// ParseWebhookEvent parses a webhook payload. Only release events are supported.
func ParseWebhookEvent(eventType, deliveryID string, payload []byte) (*ReleaseContext, error) {
	if eventType != EventRelease {
		return nil, unsupportedEventTypeError(eventType)
	}

	var event github.ReleaseEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, parsingError(eventType, err)
	}
	if event.Release == nil {
		return nil, validationError(eventType, ErrMissingRelease)
	}
	if event.Repo == nil {
		return nil, validationError(eventType, ErrMissingRepository)
	}

	return &ReleaseContext{
		DeliveryID:     deliveryID,
		Action:         event.GetAction(),
		Tag:            event.GetRelease().GetTagName(),
		Repository:     event.GetRepo().GetFullName(),
		Sender:         event.GetSender().GetLogin(),
		InstallationID: event.GetInstallation().GetID(),
		Draft:          event.GetRelease().GetDraft(),
		Prerelease:     event.GetRelease().GetPrerelease(),
		Timestamp:      time.Now(),
		RawEvent:       &event,
	}, nil
}
