package gateway

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/providers"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/rs/zerolog/log"
)

// Gateway is the single entry point for completions. It resolves per-session
// overrides against the engine-wide defaults, validates the result, bounds
// the context window and dispatches to the right provider adapter. Callers
// never talk to an engine directly.
type Gateway struct {
	defaults *settings.StepSettings
	factory  EngineFactory
}

type Option func(*Gateway)

func WithFactory(factory EngineFactory) Option {
	return func(g *Gateway) {
		g.factory = factory
	}
}

func NewGateway(defaults *settings.StepSettings, options ...Option) *Gateway {
	ret := &Gateway{
		defaults: defaults,
		factory:  NewStandardEngineFactory(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// ResolveSettings merges a session's overrides onto the defaults. The
// session's provider/model selection wins over both.
func (g *Gateway) ResolveSettings(sess *conversation.Session) *settings.StepSettings {
	ret := g.defaults.Clone()
	if ret.Chat == nil {
		ret.Chat = &settings.ChatSettings{}
	}
	if sess == nil {
		return ret
	}
	ret.Chat = ret.Chat.Overlay(sess.Settings)
	if sess.Provider != "" {
		provider := settings.Provider(sess.Provider)
		ret.Chat.Provider = &provider
	}
	if sess.Model != "" {
		model := sess.Model
		ret.Chat.Model = &model
	}
	return ret
}

// Complete assembles the bounded context from the session trunk and starts a
// streamed completion. Validation failures surface here, before anything is
// sent.
func (g *Gateway) Complete(ctx context.Context, sess *conversation.Session) (*providers.Stream, error) {
	resolved := g.ResolveSettings(sess)

	msgs := assembleContext(sess.Conversation())
	maxContext := settings.DefaultMaxContextMessages
	if resolved.Chat.MaxContextMessages != nil {
		maxContext = *resolved.Chat.MaxContextMessages
	}
	msgs = TruncateContext(msgs, maxContext)

	return g.CompleteMessages(ctx, resolved, msgs)
}

// CompleteMessages validates resolved settings and dispatches msgs as-is.
// Side generations such as auto-naming use it with synthetic conversations
// that never touch the trunk.
func (g *Gateway) CompleteMessages(ctx context.Context, resolved *settings.StepSettings, msgs conversation.Conversation) (*providers.Stream, error) {
	provider := g.factory.DefaultProvider()
	if resolved.Chat != nil && resolved.Chat.Provider != nil {
		provider = *resolved.Chat.Provider
	}
	if err := resolved.Validate(provider); err != nil {
		return nil, err
	}

	engine, err := g.factory.CreateEngine(resolved)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("provider", string(provider)).
		Str("model", *resolved.Chat.Model).
		Int("num_messages", len(msgs)).
		Msg("dispatching completion")

	return engine.Generate(ctx, msgs)
}

// ListModels returns the models a provider offers, using the gateway's
// default credentials.
func (g *Gateway) ListModels(ctx context.Context, provider settings.Provider) ([]string, error) {
	resolved := g.defaults.Clone()
	if resolved.Chat == nil {
		resolved.Chat = &settings.ChatSettings{}
	}
	resolved.Chat.Provider = &provider

	engine, err := g.factory.CreateEngine(resolved)
	if err != nil {
		return nil, err
	}
	return engine.ListModels(ctx), nil
}

// assembleContext filters the trunk down to what a provider should see:
// in-flight slots and empty failed turns carry no usable content and are
// skipped. A failed turn that streamed partial text before the error keeps
// that text.
func assembleContext(msgs conversation.Conversation) conversation.Conversation {
	ret := make(conversation.Conversation, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Generating {
			continue
		}
		if msg.Content == "" && msg.Role != conversation.RoleSystem {
			continue
		}
		ret = append(ret, msg)
	}
	return ret
}
