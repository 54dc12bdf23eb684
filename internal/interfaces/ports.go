package interfaces

import (
	"context"

	"tg_miniapp/internal/entities"
)

// Messenger delivers a reply to a chat.
type Messenger interface {
	SendReply(ctx context.Context, chatID int64, reply entities.Reply) error
}
