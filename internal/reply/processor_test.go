package reply_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notifyhub/chatbridge/internal/chat"
	"github.com/notifyhub/chatbridge/internal/reply"
)

func TestLoggingProcessor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := reply.NewLoggingProcessor(zap.New(core))

	p.Process(context.Background(), chat.Inbound{SenderID: "42", SenderName: "amelia", Text: "B"})
	p.Process(context.Background(), chat.Inbound{SenderID: "43", Text: "C"})

	assert.Equal(t, int64(2), p.Count())
	entries := logs.FilterMessage("reply received").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "42", entries[0].ContextMap()["sender_id"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["length"])
}
