// Package chat implements the conversational session layer: the per-user
// chat-mode state machine, the message pipeline that relays text to the LLM,
// and the typing keep-alive that runs alongside each call.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tidewhale/tidewhale/internal/bus"
	"github.com/tidewhale/tidewhale/internal/config"
	"github.com/tidewhale/tidewhale/internal/history"
	"github.com/tidewhale/tidewhale/internal/llm"
	"github.com/tidewhale/tidewhale/internal/rates"
	"github.com/tidewhale/tidewhale/internal/shared/stringutils"
)

// Responder produces a model reply for a conversation snapshot.
// *llm.Client satisfies it; tests substitute fakes.
type Responder interface {
	GetResponse(ctx context.Context, apiKey string, turns []history.Turn, model string) (string, error)
}

// RateConverter converts an amount between currencies.
// *rates.Service satisfies it.
type RateConverter interface {
	Convert(ctx context.Context, amount float64, base, target string) (converted, rate float64, err error)
}

// Controller reads inbound messages from the bus, runs the per-user session
// state machine, and publishes replies.
//
// Session state lives entirely in the history store: a user is "in chat mode"
// iff the store holds a non-expired session for them. The controller never
// retains history between requests; each pipeline run fetches a fresh
// snapshot.
type Controller struct {
	bus   bus.Bus
	store history.Store
	llm   Responder
	rates RateConverter
	cfg   *config.Config

	typingInterval time.Duration
}

// NewController wires a Controller. The store and responder are process-wide
// shared resources, safe for concurrent use across user sessions.
func NewController(b bus.Bus, store history.Store, responder Responder, converter RateConverter, cfg *config.Config) *Controller {
	return &Controller{
		bus:            b,
		store:          store,
		llm:            responder,
		rates:          converter,
		cfg:            cfg,
		typingInterval: defaultTypingInterval,
	}
}

// Run consumes the inbound bus until ctx is cancelled. Each message is
// handled in its own goroutine; one user's failure can never take down the
// loop or another user's session.
func (c *Controller) Run(ctx context.Context) error {
	slog.Info("chat: controller started", "model", c.cfg.LLM.Model)

	for {
		select {
		case msg := <-c.bus.InboundChan():
			go c.handleMessage(ctx, msg)
		case <-ctx.Done():
			slog.Info("chat: controller stopping")
			return ctx.Err()
		}
	}
}

func (c *Controller) handleMessage(ctx context.Context, msg bus.InboundMessage) {
	slog.Info("chat: processing message",
		"user", formatUser(msg),
		"content", stringutils.Truncate(msg.Content, 80))

	if cmd, args, ok := parseCommand(msg.Content); ok {
		c.bus.PublishOutbound(c.handleCommand(ctx, msg, cmd, args))
		return
	}
	c.bus.PublishOutbound(c.handleText(ctx, msg))
}

// handleCommand dispatches one slash command.
func (c *Controller) handleCommand(ctx context.Context, msg bus.InboundMessage, cmd, args string) bus.OutboundMessage {
	switch cmd {
	case "start":
		return bus.NewReply(msg, replyStart)
	case "help":
		return bus.NewReply(msg, replyHelp)
	case "profile":
		return bus.NewReply(msg, profileReply(msg))
	case "premium":
		return bus.NewReply(msg, replyPremium)
	case "convert":
		return c.handleConvert(ctx, msg, args)
	case "chatgpt", "chat":
		return c.handleChatStart(ctx, msg)
	case "stop":
		return c.handleChatStop(ctx, msg)
	default:
		return bus.NewReply(msg, "Unknown command. "+replyHelp)
	}
}

// handleChatStart activates chat mode, resetting any previous history.
func (c *Controller) handleChatStart(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	if err := c.store.StartSession(ctx, msg.UserID); err != nil {
		slog.Error("chat: start session failed", "user", msg.UserID, "err", err)
		return bus.NewReply(msg, replyLLMFailure)
	}
	slog.Info("chat: session started", "user", formatUser(msg))
	return bus.NewReply(msg, replyChatStarted)
}

// handleChatStop deactivates chat mode; informational when already inactive.
func (c *Controller) handleChatStop(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	active, err := c.store.IsActive(ctx, msg.UserID)
	if err != nil {
		slog.Error("chat: is-active check failed", "user", msg.UserID, "err", err)
		return bus.NewReply(msg, replyLLMFailure)
	}
	if !active {
		return bus.NewReply(msg, replyChatNotActive)
	}
	if err := c.store.StopSession(ctx, msg.UserID); err != nil {
		slog.Error("chat: stop session failed", "user", msg.UserID, "err", err)
		return bus.NewReply(msg, replyLLMFailure)
	}
	slog.Info("chat: session stopped", "user", formatUser(msg))
	return bus.NewReply(msg, replyChatStopped)
}

// handleText routes non-command text: through the LLM pipeline when the user
// is in chat mode, otherwise to the echo fallthrough.
func (c *Controller) handleText(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	active, err := c.store.IsActive(ctx, msg.UserID)
	if err != nil {
		slog.Error("chat: is-active check failed", "user", msg.UserID, "err", err)
		return bus.NewReply(msg, replyLLMFailure)
	}
	if !active {
		return bus.NewReply(msg, echoReply(msg.Content))
	}
	return c.runPipeline(ctx, msg)
}

// runPipeline is the chat-mode message pipeline:
// credential check → append user turn → snapshot → keep-alive → LLM call →
// append assistant turn → reply. The keep-alive is stopped and joined on
// every exit path; every failure maps to a specific user-visible reply.
func (c *Controller) runPipeline(ctx context.Context, msg bus.InboundMessage) bus.OutboundMessage {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return bus.NewReply(msg, replySendText)
	}

	if c.cfg.LLM.APIKey == "" {
		slog.Error("chat: no LLM API key configured", "user", msg.UserID)
		return bus.NewReply(msg, replyNoAPIKey)
	}

	if err := c.store.AddUserTurn(ctx, msg.UserID, text); err != nil {
		slog.Error("chat: append user turn failed", "user", msg.UserID, "err", err)
		return bus.NewReply(msg, replyLLMFailure)
	}

	turns, err := c.store.History(ctx, msg.UserID)
	if err != nil {
		slog.Error("chat: fetch history failed", "user", msg.UserID, "err", err)
		return bus.NewReply(msg, replyLLMFailure)
	}

	typing := startKeepAlive(ctx, c.typingInterval, func() {
		c.bus.PublishOutbound(bus.NewTyping(msg))
	})
	defer typing.Stop()

	response, err := c.llm.GetResponse(ctx, c.cfg.LLM.APIKey, turns, c.cfg.LLM.Model)
	if err != nil {
		return bus.NewReply(msg, c.failureReply(msg, err))
	}

	response = strings.TrimSpace(stringutils.StripThink(response))
	if err := c.store.AddAssistantTurn(ctx, msg.UserID, response); err != nil {
		// The reply is already in hand; losing one assistant turn of history
		// is better than dropping the answer.
		slog.Error("chat: append assistant turn failed", "user", msg.UserID, "err", err)
	}

	slog.Info("chat: response sent", "user", formatUser(msg), "length", len(response))
	return bus.NewReply(msg, response)
}

// failureReply maps a classified LLM failure to its user-visible reply.
// Failure turns are never written to history.
func (c *Controller) failureReply(msg bus.InboundMessage, err error) string {
	switch llm.KindOf(err) {
	case llm.KindRateLimited:
		slog.Warn("chat: rate limited", "user", msg.UserID, "err", err)
		return replyRateLimited
	case llm.KindModelNotFound:
		slog.Error("chat: model not found", "user", msg.UserID, "model", c.cfg.LLM.Model, "err", err)
		return replyModelNotFound
	case llm.KindTimeout:
		slog.Warn("chat: llm timeout", "user", msg.UserID, "err", err)
		return replyLLMTimeout
	default:
		// Upstream, malformed, and anything unclassified.
		slog.Error("chat: llm call failed", "user", msg.UserID, "err", err)
		return replyLLMFailure
	}
}

// handleConvert parses "/convert <amount> <from> <to>" and replies with the
// conversion result.
func (c *Controller) handleConvert(ctx context.Context, msg bus.InboundMessage, args string) bus.OutboundMessage {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return bus.NewReply(msg, replyConvertUsage)
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil || amount <= 0 {
		return bus.NewReply(msg, "❌ Please provide a positive number.\n\n"+replyConvertUsage)
	}
	base := strings.ToUpper(fields[1])
	target := strings.ToUpper(fields[2])

	converted, rate, err := c.rates.Convert(ctx, amount, base, target)
	if err != nil {
		slog.Error("chat: currency conversion failed",
			"user", msg.UserID, "base", base, "target", target, "err", err)
		return bus.NewReply(msg, "❌ Could not fetch exchange rates right now. Try again later.")
	}

	return bus.NewReply(msg, rates.FormatResult(amount, base, converted, target, rate))
}

// parseCommand splits "/cmd@botname rest of args" into ("cmd", "rest of args").
func parseCommand(content string) (cmd, args string, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "/") {
		return "", "", false
	}
	head, tail, _ := strings.Cut(content[1:], " ")
	// Group chats address commands as /cmd@botname.
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(tail), true
}

// formatUser renders a log-friendly user descriptor.
func formatUser(msg bus.InboundMessage) string {
	if msg.Username != "" {
		return fmt.Sprintf("%d|@%s", msg.UserID, msg.Username)
	}
	return strconv.FormatInt(msg.UserID, 10)
}
