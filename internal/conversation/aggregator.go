// Package conversation merges raw message and call records into
// per-contact threads: grouping by counterparty, recency ordering,
// previews, and unread counts. It is pure and performs no I/O; callers
// are responsible for fetching the records and for the fail-fast policy
// around the paired fetches.
package conversation

import (
	"fmt"
	"sort"
	"time"

	"github.com/costaleads/lead-relay/internal/models"
)

const previewMaxLen = 60

// Thread is the merged message and call history with one counterparty.
// Derived wholesale on every refresh; never persisted.
type Thread struct {
	Number       string
	Messages     []models.Message
	Calls        []models.Call
	LastActivity time.Time
}

// Aggregate groups messages and calls by counterparty for one business
// number. The counterparty of an inbound record is its From number,
// otherwise its To number. Records whose counterparty equals the
// business's own number are dropped, so a gateway echoing self-to-self
// records never produces a thread.
func Aggregate(messages []models.Message, calls []models.Call, businessNumber string) map[string]*Thread {
	threads := make(map[string]*Thread)

	touch := func(number string, ts time.Time) *Thread {
		t, ok := threads[number]
		if !ok {
			t = &Thread{Number: number}
			threads[number] = t
		}
		if ts.After(t.LastActivity) {
			t.LastActivity = ts
		}
		return t
	}

	for _, msg := range messages {
		counterparty := msg.To
		if msg.Inbound() {
			counterparty = msg.From
		}
		if counterparty == businessNumber {
			continue
		}
		t := touch(counterparty, msg.Timestamp())
		t.Messages = append(t.Messages, msg)
	}

	for _, call := range calls {
		counterparty := call.To
		if call.Inbound() {
			counterparty = call.From
		}
		if counterparty == businessNumber {
			continue
		}
		t := touch(counterparty, call.Timestamp())
		t.Calls = append(t.Calls, call)
	}

	return threads
}

// Sorted flattens a thread map into a slice ordered by last activity,
// most recent first. Ties keep their relative order.
func Sorted(threads map[string]*Thread) []*Thread {
	out := make([]*Thread, 0, len(threads))
	for _, t := range threads {
		out = append(out, t)
	}
	// Map iteration order is random; fix a stable base order first so
	// equal LastActivity values sort deterministically.
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Unread counts inbound messages the provider has not reported as read.
// This is a client-side heuristic, not an acknowledged receipt; it only
// drops when the provider later reports a "read" status.
func (t *Thread) Unread() int {
	n := 0
	for i := range t.Messages {
		if t.Messages[i].Unread() {
			n++
		}
	}
	return n
}

// TotalUnread sums unread counts across threads for the business badge.
func TotalUnread(threads []*Thread) int {
	total := 0
	for _, t := range threads {
		total += t.Unread()
	}
	return total
}

// Preview derives the list-row summary for a thread: the body of the
// newest message, prefixed when outbound, unless the newest call is more
// recent, in which case a direction icon plus formatted duration. A
// thread with neither yields an empty string.
func (t *Thread) Preview() string {
	msg := t.latestMessage()
	call := t.latestCall()

	switch {
	case msg != nil && (call == nil || msg.Timestamp().After(call.Timestamp())):
		preview := msg.Body
		if msg.Outbound() {
			preview = "↗ " + preview
		}
		return truncate(preview, previewMaxLen)
	case call != nil:
		icon := "📤"
		if call.Inbound() {
			icon = "📥"
		}
		if dur := FormatDuration(call.DurationSeconds()); dur != "" {
			return fmt.Sprintf("%s Call %s", icon, dur)
		}
		return fmt.Sprintf("%s Call", icon)
	default:
		return ""
	}
}

func (t *Thread) latestMessage() *models.Message {
	var latest *models.Message
	for i := range t.Messages {
		if latest == nil || t.Messages[i].Timestamp().After(latest.Timestamp()) {
			latest = &t.Messages[i]
		}
	}
	return latest
}

func (t *Thread) latestCall() *models.Call {
	var latest *models.Call
	for i := range t.Calls {
		if latest == nil || t.Calls[i].Timestamp().After(latest.Timestamp()) {
			latest = &t.Calls[i]
		}
	}
	return latest
}

// FormatDuration renders seconds as "45s" or "2m 5s"; zero renders
// empty, matching how unanswered calls are shown.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
