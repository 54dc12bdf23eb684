package usecases

import (
	"strings"

	"tg_miniapp/internal/entities"
	"tg_miniapp/internal/infrastructure"
)

// Commands the bot answers. Any other slash command is treated as plain text.
const (
	CommandStart = "start"
	CommandHelp  = "help"
)

// Classify maps a Telegram update to exactly one InboundUpdate variant.
// ok is false when the update needs no reply.
//
// Order matters: a contact share is caught before anything else so its phone
// number never reaches the text paths, and web view data wins over text.
func Classify(u infrastructure.Update, botUsername string) (in entities.InboundUpdate, ok bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return entities.InboundUpdate{}, false
	}

	sender := entities.Sender{ChatID: msg.Chat.ID}
	if msg.From != nil {
		sender.FirstName = msg.From.FirstName
	}

	switch {
	case msg.Contact != nil:
		return entities.InboundUpdate{Kind: entities.UpdateContactShare, Sender: sender}, true
	case msg.WebAppData != nil && msg.WebAppData.Data != "":
		return entities.InboundUpdate{Kind: entities.UpdateWebViewPayload, Sender: sender, Payload: msg.WebAppData.Data}, true
	}

	if name, isCmd := parseCommand(msg.Text, botUsername); isCmd {
		return entities.InboundUpdate{Kind: entities.UpdateCommand, Sender: sender, Command: name}, true
	}
	if msg.Text != "" {
		return entities.InboundUpdate{Kind: entities.UpdatePlainText, Sender: sender, Text: msg.Text}, true
	}
	return entities.InboundUpdate{}, false
}

// parseCommand recognizes "/start" and "/help", optionally addressed as
// "/start@botname". A command addressed to another bot is not ours.
func parseCommand(text, botUsername string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word, _, _ := strings.Cut(text[1:], " ")
	word, _, _ = strings.Cut(word, "\n")
	name, target, addressed := strings.Cut(word, "@")
	if addressed && botUsername != "" && !strings.EqualFold(target, botUsername) {
		return "", false
	}
	switch name {
	case CommandStart, CommandHelp:
		return name, true
	default:
		return "", false
	}
}
