package models

import (
	"encoding/json"
	"time"
)

// FetchedAtLayout is ISO-8601 in UTC with millisecond precision
const FetchedAtLayout = "2006-01-02T15:04:05.000Z"

// ChannelStats is the success payload of the subscriber count endpoint
type ChannelStats struct {
	OK              bool      `json:"ok"`
	Channel         string    `json:"channel"`
	ChannelID       string    `json:"channelId"`
	SubscriberCount int64     `json:"subscriberCount"`
	FetchedAt       time.Time `json:"fetchedAt"`
}

// MarshalJSON renders FetchedAt in UTC with exactly three fractional digits.
func (s ChannelStats) MarshalJSON() ([]byte, error) {
	type alias ChannelStats
	return json.Marshal(struct {
		alias
		FetchedAt string `json:"fetchedAt"`
	}{
		alias:     alias(s),
		FetchedAt: s.FetchedAt.UTC().Format(FetchedAtLayout),
	})
}

// ErrorResponse is the failure payload of every endpoint
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewErrorResponse builds an ErrorResponse with OK unset
func NewErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}
