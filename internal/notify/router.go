// Package notify renders and transmits escalation notifications. The
// escalation engine decides what to send and when; this package owns how.
package notify

import (
	"context"
	"fmt"

	"candidate-risk-engine/internal/common/logger"
	"candidate-risk-engine/internal/engine/escalation"
)

// ChannelSender delivers one notification on a single transport.
type ChannelSender interface {
	Send(ctx context.Context, candidateID string, payload escalation.Payload) error
}

// Router fans dispatch requests out to the configured channel senders. It
// implements the escalation engine's Sender interface.
type Router struct {
	senders map[escalation.Channel]ChannelSender
	logger  logger.Logger
}

func NewRouter(log logger.Logger) *Router {
	return &Router{
		senders: make(map[escalation.Channel]ChannelSender),
		logger:  log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Register wires a sender for a channel. Later registrations replace earlier
// ones.
func (r *Router) Register(ch escalation.Channel, sender ChannelSender) {
	r.senders[ch] = sender
}

// Dispatch routes the payload to the channel's sender. An unconfigured
// channel is a hard error so misconfigured policies surface immediately.
func (r *Router) Dispatch(ctx context.Context, candidateID string, ch escalation.Channel, payload escalation.Payload) error {
	sender, ok := r.senders[ch]
	if !ok {
		return fmt.Errorf("notify: no sender configured for channel %q", ch)
	}
	return sender.Send(ctx, candidateID, payload)
}
