package conversation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/costaleads/lead-relay/internal/conversation"
	"github.com/costaleads/lead-relay/internal/models"
)

func TestTimeline_ChronologicalAscending(t *testing.T) {
	thread := &conversation.Thread{
		Number: "+15551230001",
		Messages: []models.Message{
			inboundMessage(t, "SM2", "+15551230001", "second", "read", "2026-08-01T10:30:00Z"),
			inboundMessage(t, "SM1", "+15551230001", "first", "read", "2026-08-01T10:00:00Z"),
		},
		Calls: []models.Call{
			inboundCall(t, "CA1", "+15551230001", "completed", "30", "2026-08-01T10:15:00Z"),
			inboundCall(t, "CA2", "+15551230001", "no-answer", "0", "2026-08-01T11:00:00Z"),
		},
	}

	items := thread.Timeline()
	require.Len(t, items, 4)

	assert.Equal(t, conversation.ItemMessage, items[0].Kind)
	assert.Equal(t, "SM1", items[0].Message.SID)
	assert.Equal(t, conversation.ItemCall, items[1].Kind)
	assert.Equal(t, "CA1", items[1].Call.SID)
	assert.Equal(t, conversation.ItemMessage, items[2].Kind)
	assert.Equal(t, "SM2", items[2].Message.SID)
	assert.Equal(t, conversation.ItemCall, items[3].Kind)
	assert.Equal(t, "CA2", items[3].Call.SID)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].Time.Before(items[i-1].Time),
			"timeline must be ordered ascending")
	}
}

func TestTimeline_EmptyThread(t *testing.T) {
	thread := &conversation.Thread{Number: "+15551230001"}
	assert.Empty(t, thread.Timeline())
}
