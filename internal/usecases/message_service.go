package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"tg_miniapp/internal/entities"
	"tg_miniapp/internal/infrastructure"
	"tg_miniapp/internal/interfaces"
	"tg_miniapp/internal/metrics"
	"tg_miniapp/internal/redact"
)

const (
	helpText       = "Available commands:\n/start - open the mini-app\n/help - help"
	fallbackText   = "I'm a mini-app bot. Use /start to open the mini-application."
	contactDecline = "I don't collect phone numbers. To reach us, use the mini-app or send a message without sharing your contact."
	dataReceived   = "Thanks, I received the mini-app data:\n"
	openButtonText = "Open the mini-app"
	defaultName    = "there"
	quoteAction    = "message"
	missingName    = "?"
	missingPrice   = "?"
	formatJSON     = "json"
	formatText     = "text"
)

// MessageServiceConfig is the part of the configuration replies depend on.
type MessageServiceConfig struct {
	MiniAppURL  string
	ClientSlug  string
	BotUsername string
}

// MessageService turns Telegram updates into replies. It keeps no state
// between updates.
type MessageService struct {
	messenger interfaces.Messenger
	cfg       MessageServiceConfig
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewMessageService creates the dispatcher. m may be nil.
func NewMessageService(messenger interfaces.Messenger, cfg MessageServiceConfig, logger *slog.Logger, m *metrics.Metrics) *MessageService {
	return &MessageService{
		messenger: messenger,
		cfg:       cfg,
		logger:    logger.With("component", "dispatcher"),
		metrics:   m,
	}
}

// ProcessUpdate classifies u, builds its reply and sends it. Nothing is
// returned: failures are logged and the next update is processed as usual.
func (s *MessageService) ProcessUpdate(ctx context.Context, u infrastructure.Update) {
	in, ok := Classify(u, s.cfg.BotUsername)
	if !ok {
		s.logger.DebugContext(ctx, "update ignored", "update_id", u.UpdateID)
		return
	}
	s.metrics.ObserveUpdate(string(in.Kind))

	reply, err := s.HandleUpdate(ctx, in)
	if err != nil {
		s.logger.ErrorContext(ctx, "build reply failed", "update_id", u.UpdateID, "kind", in.Kind, "error", err)
		return
	}
	if reply == nil {
		return
	}

	err = s.messenger.SendReply(ctx, in.Sender.ChatID, *reply)
	s.metrics.ObserveReply(err)
	if err != nil {
		s.logger.ErrorContext(ctx, "send reply failed", "update_id", u.UpdateID, "chat_id", in.Sender.ChatID, "error", err)
	}
}

// HandleUpdate returns the single reply for in, or nil when there is nothing
// to say. A panic while formatting is turned into an error.
func (s *MessageService) HandleUpdate(ctx context.Context, in entities.InboundUpdate) (reply *entities.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply, err = nil, fmt.Errorf("panic while building reply: %v", r)
		}
	}()

	switch in.Kind {
	case entities.UpdateCommand:
		switch in.Command {
		case CommandStart:
			return s.startReply(in.Sender)
		case CommandHelp:
			return &entities.Reply{Text: helpText}, nil
		default:
			return &entities.Reply{Text: fallbackText}, nil
		}
	case entities.UpdateContactShare:
		// The contact itself is never looked at.
		s.logger.InfoContext(ctx, "contact share declined", "chat_id", in.Sender.ChatID)
		return &entities.Reply{Text: contactDecline}, nil
	case entities.UpdateWebViewPayload:
		return s.webViewReply(ctx, in.Payload)
	case entities.UpdatePlainText:
		return &entities.Reply{Text: fallbackText}, nil
	default:
		return nil, fmt.Errorf("unknown update kind %q", in.Kind)
	}
}

func (s *MessageService) startReply(sender entities.Sender) (*entities.Reply, error) {
	link, err := BuildMiniAppURL(s.cfg.MiniAppURL, s.cfg.ClientSlug)
	if err != nil {
		return nil, err
	}
	name := sender.FirstName
	if name == "" {
		name = defaultName
	}
	return &entities.Reply{
		Text:   fmt.Sprintf("Hi %s 👋\nHere is the mini-app. Tap the button to open it:", name),
		Button: &entities.ReplyButton{Text: openButtonText, WebAppURL: link},
	}, nil
}

// webViewReply handles data sent by the mini-app. Only redacted data is
// logged or echoed; text that is not JSON goes through in-place redaction.
func (s *MessageService) webViewReply(ctx context.Context, raw string) (*entities.Reply, error) {
	v, err := redact.Parse([]byte(raw))
	if err != nil {
		redacted := redact.RedactText(raw)
		s.metrics.ObserveWebViewPayload(formatText)
		s.logger.InfoContext(ctx, "web view data received (not JSON)", "data", redacted)
		return &entities.Reply{Text: dataReceived + redacted}, nil
	}

	s.metrics.ObserveWebViewPayload(formatJSON)
	safe := redact.RedactStructure(v)
	pretty, err := safe.Pretty()
	if err != nil {
		return nil, fmt.Errorf("format web view data: %w", err)
	}
	s.logger.InfoContext(ctx, "web view data received", "data", pretty)

	if q, ok := quoteRequest(safe); ok {
		s.metrics.ObserveQuoteRequest()
		return &entities.Reply{Text: q.Summary()}, nil
	}
	return &entities.Reply{Text: dataReceived + pretty}, nil
}

// quoteRequest extracts a product quote from a redacted payload shaped like
// {"action":"message","product":{...},"text":...}. Missing or null fields
// fall back to placeholders; a product that is not an object counts as empty.
func quoteRequest(v redact.Value) (entities.ProductQuoteRequest, bool) {
	action, ok := v.Get("action")
	if !ok || action.Kind != redact.KindText || action.Text != quoteAction {
		return entities.ProductQuoteRequest{}, false
	}

	product, _ := v.Get("product")
	return entities.ProductQuoteRequest{
		ProductName:  displayOr(product, "name", missingName),
		ProductID:    displayOr(product, "id", ""),
		ProductPrice: displayOr(product, "price", missingPrice),
		Text:         displayOr(v, "text", ""),
	}, true
}

func displayOr(v redact.Value, key, fallback string) string {
	field, ok := v.Get(key)
	if !ok || field.Kind == redact.KindNull {
		return fallback
	}
	return field.Display()
}

// BuildMiniAppURL returns base with client=<client> in its query. Existing
// parameters are kept and a previous client value is replaced. An empty
// client leaves base untouched.
func BuildMiniAppURL(base, client string) (string, error) {
	if client == "" {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse mini-app url: %w", err)
	}
	q := u.Query()
	q.Set("client", client)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
