package chat

import (
	"context"
	"fmt"
)

// checkRoom and checkSender never hold data; they only route the queries.
const (
	checkRoom   = "__bootstrap_check__"
	checkSender = "__bootstrap_check__"
)

// Check runs the read paths of the repository once each: the room timeline
// and count go through (roomId, createdAt desc), the sender lookup through
// senderId. Nothing is written.
func Check(ctx context.Context, r Repository) error {
	if _, err := r.RecentByRoom(ctx, checkRoom); err != nil {
		return fmt.Errorf("recent messages by room: %w", err)
	}
	if _, err := r.CountByRoom(ctx, checkRoom); err != nil {
		return fmt.Errorf("count messages by room: %w", err)
	}
	if _, err := r.FindBySender(ctx, checkSender, 1); err != nil {
		return fmt.Errorf("messages by sender: %w", err)
	}
	return nil
}
