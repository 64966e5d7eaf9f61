package gateway

import (
	"github.com/go-go-golems/parley/pkg/conversation"
)

// TruncateContext bounds the context window sent to a provider: system
// messages are always retained, and of the remaining messages only the most
// recent maxContext survive. Oldest non-system messages are dropped first.
// maxContext <= 0 means no bound.
func TruncateContext(msgs conversation.Conversation, maxContext int) conversation.Conversation {
	if maxContext <= 0 {
		return msgs
	}

	nonSystem := 0
	for _, msg := range msgs {
		if msg.Role != conversation.RoleSystem {
			nonSystem++
		}
	}
	if nonSystem <= maxContext {
		return msgs
	}

	toDrop := nonSystem - maxContext
	ret := make(conversation.Conversation, 0, len(msgs)-toDrop)
	for _, msg := range msgs {
		if msg.Role != conversation.RoleSystem && toDrop > 0 {
			toDrop--
			continue
		}
		ret = append(ret, msg)
	}
	return ret
}
