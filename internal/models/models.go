// Package models defines data structures used throughout the application.
package models

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Message and call direction values as reported by Twilio. Outbound
// records carry a suffix describing how they were created
// ("outbound-api", "outbound-call", "outbound-reply"), so direction
// checks match on the prefix.
const DirectionInbound = "inbound"

// MessageStatusRead is the terminal status for an inbound message the
// operator has seen. Anything else counts as unread.
const MessageStatusRead = "read"

// ProviderTime decodes the RFC1123Z timestamps Twilio uses in its JSON
// payloads ("Mon, 02 Jan 2006 15:04:05 -0700"). Empty strings and nulls
// decode to the zero time: the provider omits timestamp fields on
// records that are still in flight.
type ProviderTime struct {
	time.Time
}

func (t *ProviderTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC1123Z, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t ProviderTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Format(time.RFC1123Z) + `"`), nil
}

// Message is an SMS record as returned by the provider. Immutable once
// fetched; the provider is the source of truth. Fields the provider adds
// beyond these are ignored.
type Message struct {
	SID         string       `json:"sid"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Body        string       `json:"body"`
	Direction   string       `json:"direction"`
	Status      string       `json:"status"`
	DateCreated ProviderTime `json:"date_created"`
	DateSent    ProviderTime `json:"date_sent"`
}

// Inbound reports whether the message was received by the business
// number rather than sent from it.
func (m *Message) Inbound() bool {
	return m.Direction == DirectionInbound
}

// Outbound matches all outbound-* direction variants.
func (m *Message) Outbound() bool {
	return strings.HasPrefix(m.Direction, "outbound")
}

// Timestamp returns the record's creation time, falling back to the
// sent time when the provider omitted date_created.
func (m *Message) Timestamp() time.Time {
	if !m.DateCreated.IsZero() {
		return m.DateCreated.Time
	}
	return m.DateSent.Time
}

// Unread reports whether the message counts toward the unread badge:
// inbound and not yet reported as read by the provider.
func (m *Message) Unread() bool {
	return m.Inbound() && m.Status != MessageStatusRead
}

// Call is a voice call record as returned by the provider. Duration is
// string-typed on the wire.
type Call struct {
	SID         string       `json:"sid"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Direction   string       `json:"direction"`
	Status      string       `json:"status"`
	Duration    string       `json:"duration"`
	DateCreated ProviderTime `json:"date_created"`
	StartTime   ProviderTime `json:"start_time"`
}

func (c *Call) Inbound() bool {
	return c.Direction == DirectionInbound
}

// Timestamp returns the record's creation time, falling back to the
// call start time when the provider omitted date_created.
func (c *Call) Timestamp() time.Time {
	if !c.DateCreated.IsZero() {
		return c.DateCreated.Time
	}
	return c.StartTime.Time
}

// DurationSeconds parses the wire duration; malformed or missing values
// count as zero.
func (c *Call) DurationSeconds() int {
	n, err := strconv.Atoi(c.Duration)
	if err != nil {
		return 0
	}
	return n
}

// PushSubscription is a browser push registration as produced by
// PushManager.subscribe, stored verbatim.
type PushSubscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushPayload is the notification body fanned out to subscribers. Tag is
// used by the platform to coalesce notifications.
type PushPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Tag   string                 `json:"tag"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// CallEvent is the form-encoded status callback Twilio posts to the call
// webhooks.
type CallEvent struct {
	CallSID string
	From    string
	To      string
	Status  string
}

// MessageEvent is the form-encoded callback for an inbound SMS.
type MessageEvent struct {
	MessageSID string
	From       string
	To         string
	Body       string
}
