package reply

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/notifyhub/chatbridge/internal/chat"
)

// LoggingProcessor accepts validated inbound replies. Conversational handling
// is out of scope; replies are logged and counted.
type LoggingProcessor struct {
	logger *zap.Logger
	count  atomic.Int64
}

func NewLoggingProcessor(logger *zap.Logger) *LoggingProcessor {
	return &LoggingProcessor{logger: logger}
}

func (p *LoggingProcessor) Process(_ context.Context, in chat.Inbound) {
	p.count.Add(1)
	p.logger.Info("reply received",
		zap.String("sender_id", in.SenderID),
		zap.String("sender", in.SenderName),
		zap.Int("length", len(in.Text)),
	)
}

// Count returns the number of replies processed.
func (p *LoggingProcessor) Count() int64 { return p.count.Load() }

var _ chat.ReplyProcessor = (*LoggingProcessor)(nil)
