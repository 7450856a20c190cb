package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends operational alerts to an admin chat. A nil Notifier (or
// one built without credentials) is a no-op, so callers never guard.
type Notifier struct {
	api     *tgbotapi.BotAPI
	adminID int64
}

// NewTelegramNotifier initialises the Telegram API. When token or adminID
// is unset the alerts are disabled and a disabled Notifier is returned.
func NewTelegramNotifier(token string, adminID int64) (*Notifier, error) {
	if token == "" || adminID == 0 {
		return &Notifier{}, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Printf("Telegram alerts authorized on account %s", api.Self.UserName)

	return &Notifier{api: api, adminID: adminID}, nil
}

// AlertGenerationFailure reports a failed generation call to the admin.
func (n *Notifier) AlertGenerationFailure(agent string, err error) {
	n.send(fmt.Sprintf("❌ *Generation failed*\nAgent: %s\nError: %v", agent, err))
}

// AlertTokenBloat flags prompts that have grown past the expected size.
func (n *Notifier) AlertTokenBloat(agent, model string, promptTokens int) {
	n.send(fmt.Sprintf("⚠️ *Context Bloat Alert*\nAgent: %s\nModel: %s\nPrompt Tokens: %d", agent, model, promptTokens))
}

func (n *Notifier) send(text string) {
	if n == nil || n.api == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.adminID, text)
	msg.ParseMode = "Markdown"
	if _, err := n.api.Send(msg); err != nil {
		log.Printf("Failed to send admin alert: %v", err)
	}
}
