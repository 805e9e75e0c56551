package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Serializer runs commands for the same key one at a time.
type Serializer interface {
	// Do runs fn after every earlier command for key has finished.
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ChatSender delivers a formatted message to an external chat.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
