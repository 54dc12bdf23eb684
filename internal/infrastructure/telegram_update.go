package infrastructure

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebAppData is the data a mini-app sends back with Telegram.WebApp.sendData.
type WebAppData struct {
	Data       string `json:"data"`
	ButtonText string `json:"button_text"`
}

// Message extends the library message with fields it does not decode yet.
type Message struct {
	tgbotapi.Message
	WebAppData *WebAppData `json:"web_app_data,omitempty"`
}

// Update is a getUpdates result entry. Other update types (edited messages,
// callback queries, ...) are not decoded.
type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}
