package controller

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/rs/zerolog/log"
)

const (
	// naming runs against real conversation content, so wait until there is
	// at least one exchange to summarize
	minMessagesForNaming = 2

	// per-message excerpt cap keeps the naming prompt cheap
	namingExcerptLen = 240

	namingTimeout = 30 * time.Second

	maxNameLen = 60
)

const namingInstruction = "Summarize the following conversation in a short title of at most five words. Reply with the title only, no quotes, no punctuation at the end."

// AutoNameSession derives a session name from the current trunk. Best-effort:
// failures and stalls are logged and swallowed, the session keeps its old
// name. Run it in its own goroutine; it never touches the trunk.
func (c *Controller) AutoNameSession(sess *conversation.Session) {
	name, ok := c.generateName(sess, sess.Conversation())
	if !ok {
		return
	}
	sess.Lock()
	sess.Name = name
	sess.Unlock()
	log.Debug().Str("session_id", sess.ID.String()).Str("name", name).Msg("auto-named session")
}

// AutoNameThread names an archived thread from its own messages.
func (c *Controller) AutoNameThread(sess *conversation.Session, thread *conversation.Thread) {
	name, ok := c.generateName(sess, thread.Messages)
	if !ok {
		return
	}
	sess.Lock()
	thread.Name = name
	sess.Unlock()
	log.Debug().Str("thread_id", thread.ID.String()).Str("name", name).Msg("auto-named thread")
}

func (c *Controller) generateName(sess *conversation.Session, msgs conversation.Conversation) (string, bool) {
	excerpt := namingExcerpt(msgs)
	if excerpt == nil {
		return "", false
	}

	prompt := namingInstruction + "\n\n" + excerpt.GetSinglePrompt()
	naming := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, prompt),
	}

	// independent of any UI context: naming outlives the action that
	// triggered it, bounded by its own timeout
	ctx, cancel := context.WithTimeout(context.Background(), namingTimeout)
	defer cancel()

	resolved := c.gateway.ResolveSettings(sess)
	stream, err := c.gateway.CompleteMessages(ctx, resolved, naming)
	if err != nil {
		log.Debug().Err(err).Msg("auto-naming dispatch failed")
		return "", false
	}

	for range stream.Events() {
		// drain; only the final text matters
	}
	result, err := stream.Result()
	if err != nil {
		log.Debug().Err(err).Msg("auto-naming generation failed")
		return "", false
	}

	name := cleanName(result.Text)
	if name == "" {
		return "", false
	}
	return name, true
}

// namingExcerpt selects the completed turns worth summarizing, truncating
// each to a short excerpt. Returns nil when there is not enough material.
func namingExcerpt(msgs conversation.Conversation) conversation.Conversation {
	ret := make(conversation.Conversation, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Generating || msg.Content == "" || msg.Role == conversation.RoleSystem {
			continue
		}
		content := msg.Content
		if len(content) > namingExcerptLen {
			content = content[:namingExcerptLen]
		}
		ret = append(ret, conversation.NewMessage(msg.Role, content))
	}
	if len(ret) < minMessagesForNaming {
		return nil
	}
	return ret
}

func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.Trim(name, "\"'`")
	name = strings.ReplaceAll(name, "\n", " ")
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return strings.TrimSpace(name)
}
