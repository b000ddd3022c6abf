package chat

import (
	"fmt"
	"strings"

	"github.com/tidewhale/tidewhale/internal/bus"
)

// Static reply texts. Kept in one place so the controller reads like the
// state machine it is.

const (
	replyChatStarted = "🤖 Chat mode activated!\n\n" +
		"I'll now answer your messages with the language model. " +
		"Send me anything and I'll reply.\n\n" +
		"Use /stop to leave chat mode."

	replyChatStopped    = "✅ Chat mode deactivated."
	replyChatNotActive  = "ℹ️ You are not in chat mode. Use /chatgpt to start."
	replySendText       = "Please send a text message."
	replyNoAPIKey       = "❌ The LLM API key is not configured. Please contact the administrator."
	replyRateLimited    = "⏳ Request limit for the free model exceeded.\n\n" +
		"Free models are limited to a small daily quota. " +
		"Try again later, or use /stop to leave chat mode."
	replyModelNotFound  = "❌ The model is temporarily unavailable.\n\n" +
		"Please contact the administrator to configure a different model."
	replyLLMTimeout     = "⏳ The model took too long to answer. " +
		"Try again, or use /stop to leave chat mode."
	replyLLMFailure     = "❌ Something went wrong while processing your request.\n\n" +
		"Try again later, or use /stop to leave chat mode."

	replyStart = "👋 Hi! I'm tidewhale.\n\n" +
		"I can chat with a language model, convert currencies, and more.\n\n" +
		"• /chatgpt — start LLM chat mode\n" +
		"• /convert — currency converter\n" +
		"• /help — all commands"

	replyHelp = "🛟 tidewhale commands:\n\n" +
		"/start — restart the bot\n" +
		"/chatgpt — start LLM chat mode\n" +
		"/stop — leave LLM chat mode\n" +
		"/convert <amount> <from> <to> — convert currencies\n" +
		"/profile — your profile\n" +
		"/premium — premium info\n" +
		"/help — this message"

	replyPremium = "⭐ Premium is not available yet.\n\n" +
		"All features are currently free. Stay tuned!"

	replyConvertUsage = "💱 Usage: /convert <amount> <from> <to>\n" +
		"Example: /convert 100 USD EUR"
)

// profileReply formats the /profile response from what the transport knows
// about the sender.
func profileReply(msg bus.InboundMessage) string {
	username := "not set"
	if msg.Username != "" {
		username = "@" + msg.Username
	}
	name := msg.FirstName
	if name == "" {
		name = "not set"
	}
	return fmt.Sprintf("👤 Profile\n\n🆔 ID: %d\n👤 Name: %s\n📱 Username: %s",
		msg.UserID, name, username)
}

// echoReply answers plain text received outside chat mode.
func echoReply(text string) string {
	return "🔁 " + strings.TrimSpace(text) + "\n\n" +
		"I'm just echoing. Use /chatgpt to talk to the language model."
}
