package entities

// UpdateKind identifies which variant of an InboundUpdate is active.
type UpdateKind string

const (
	UpdateCommand        UpdateKind = "command"
	UpdateWebViewPayload UpdateKind = "web_view_payload"
	UpdateContactShare   UpdateKind = "contact_share"
	UpdatePlainText      UpdateKind = "plain_text"
)

// Sender is the chat an update came from and where its reply goes.
type Sender struct {
	ChatID    int64
	FirstName string
}

// InboundUpdate is one classified chat update. Only the fields of the active
// Kind are set: Command for UpdateCommand, Payload for UpdateWebViewPayload,
// Text for UpdatePlainText. A contact share carries no contact data at all.
type InboundUpdate struct {
	Kind    UpdateKind
	Sender  Sender
	Command string // e.g. "start", "help"
	Payload string // raw web view data
	Text    string
}

// ReplyButton is an inline button that opens the mini-app.
type ReplyButton struct {
	Text      string
	WebAppURL string
}

// Reply is the single outbound message produced for an update.
type Reply struct {
	Text   string
	Button *ReplyButton
}
