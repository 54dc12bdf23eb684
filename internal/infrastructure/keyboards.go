package infrastructure

// WebAppInfo describes the mini-app an inline button opens.
type WebAppInfo struct {
	URL string `json:"url"`
}

// InlineKeyboardButton mirrors the Bot API button with web_app support.
type InlineKeyboardButton struct {
	Text   string      `json:"text"`
	WebApp *WebAppInfo `json:"web_app,omitempty"`
}

// InlineKeyboardMarkup is sent as reply_markup.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// CreateWebAppKeyboard creates a single-button keyboard opening the mini-app at url
func CreateWebAppKeyboard(text, url string) InlineKeyboardMarkup {
	return InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: text, WebApp: &WebAppInfo{URL: url}}},
		},
	}
}
