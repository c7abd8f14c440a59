package conversation

import (
	"sort"
	"time"

	"github.com/costaleads/lead-relay/internal/models"
)

// ItemKind tags a timeline entry as a message or a call.
type ItemKind string

const (
	ItemMessage ItemKind = "message"
	ItemCall    ItemKind = "call"
)

// TimelineItem is one entry in a thread's chronological view. Exactly
// one of Message or Call is set, matching Kind.
type TimelineItem struct {
	Kind    ItemKind        `json:"kind"`
	Time    time.Time       `json:"time"`
	Message *models.Message `json:"message,omitempty"`
	Call    *models.Call    `json:"call,omitempty"`
}

// Timeline interleaves the thread's messages and calls in ascending
// timestamp order for rendering an open conversation.
func (t *Thread) Timeline() []TimelineItem {
	items := make([]TimelineItem, 0, len(t.Messages)+len(t.Calls))

	for i := range t.Messages {
		msg := &t.Messages[i]
		items = append(items, TimelineItem{
			Kind:    ItemMessage,
			Time:    msg.Timestamp(),
			Message: msg,
		})
	}
	for i := range t.Calls {
		call := &t.Calls[i]
		items = append(items, TimelineItem{
			Kind:    ItemCall,
			Time:    call.Timestamp(),
			Call:    call,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Time.Before(items[j].Time)
	})
	return items
}
