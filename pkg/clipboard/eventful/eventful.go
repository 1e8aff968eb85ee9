package eventful

import (
	"context"

	"github.com/rs/zerolog"
)

// Eventful is the optional change-subscription side of a clipboard backend.
type Eventful interface {
	// Watch subscribes to clipboard text updates.
	// When the context is finished, Watch must close the update channel.
	Watch(ctx context.Context, upd chan<- Update) error
}

type Update struct {
	Data []byte
	Hash uint64
}

func (u Update) MarshalZerologObject(e *zerolog.Event) {
	e.Int("length", len(u.Data))
	e.Uint64("hash", u.Hash)
}
