package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData carries the authenticated principal for a request. Owner
// requests set UserID; widget requests set the bot and token ids resolved
// from the widget token.
type RequestData struct {
	TokenString   string
	UserID        uuid.UUID
	WidgetBotID   uuid.UUID
	WidgetTokenID uuid.UUID
}
