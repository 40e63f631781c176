package events

import (
	"context"
	"fmt"
	"log/slog"

	"maxtrack/internal/models"
)

const (
	ActionLoadItemLyrics  EventType = "content/LOAD_ITEM_LYRICS"
	LoadItemLyricsSuccess EventType = "content/LOAD_ITEM_LYRICS_SUCCESS"
	LoadItemLyricsFail    EventType = "content/LOAD_ITEM_LYRICS_FAIL"
)

// LyricsFetcher loads lyrics for a track from the host catalog
type LyricsFetcher interface {
	FetchLyrics(ctx context.Context, trackID string) (*models.Lyrics, error)
}

// RegisterLyricsHandler serves lyrics load actions on bus using fetcher and
// returns a function that unregisters it
func RegisterLyricsHandler(bus *Bus, fetcher LyricsFetcher) func() {
	return bus.Subscribe(ActionLoadItemLyrics, func(ctx context.Context, action *Event) {
		itemID := action.String("itemId")

		lyrics, err := fetcher.FetchLyrics(ctx, itemID)
		if err != nil {
			slog.Debug("Lyrics load failed", "item_id", itemID, "error", err)
			bus.Publish(ctx, action.Reply(LoadItemLyricsFail).WithData("error", err.Error()))
			return
		}
		bus.Publish(ctx, action.Reply(LoadItemLyricsSuccess).WithPayload(lyrics))
	})
}

// LoadItemLyrics requests lyrics for a track over bus and waits for the
// confirmation. A failure confirmation is returned as an error wrapping
// ErrActionFailed.
func LoadItemLyrics(ctx context.Context, bus *Bus, itemID string) (*models.Lyrics, error) {
	action := NewEvent(ActionLoadItemLyrics).
		WithData("itemId", itemID).
		WithData("itemType", "track")

	event, err := bus.Request(ctx, action,
		[]EventType{LoadItemLyricsSuccess},
		[]EventType{LoadItemLyricsFail},
	)
	if err != nil {
		return nil, err
	}

	lyrics, ok := event.Payload.(*models.Lyrics)
	if !ok || lyrics == nil {
		return nil, fmt.Errorf("%w: unexpected lyrics payload %T", ErrActionFailed, event.Payload)
	}
	return lyrics, nil
}
