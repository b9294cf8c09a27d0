package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventScoresSynced      EventType = "scores_synced"
	EventVisibilityChanged EventType = "visibility_changed"
	EventSyncFailed        EventType = "sync_failed"
)

// Event represents an immutable domain event.
type Event struct {
	Type      EventType `json:"type"`
	Time      time.Time `json:"time"`
	AccountID int64     `json:"account_id"`
	GameID    int64     `json:"game_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	Hidden    bool      `json:"hidden,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func NewScoresSynced(account int64, count int) Event {
	return Event{Type: EventScoresSynced, Time: time.Now().UTC(), AccountID: account, Count: count}
}

func NewVisibilityChanged(account, game int64, hidden bool) Event {
	return Event{Type: EventVisibilityChanged, Time: time.Now().UTC(), AccountID: account, GameID: game, Hidden: hidden}
}

func NewSyncFailed(account int64, message string) Event {
	return Event{Type: EventSyncFailed, Time: time.Now().UTC(), AccountID: account, Message: message}
}
