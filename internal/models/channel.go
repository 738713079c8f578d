package models

import "strings"

// ChannelKind tells how a caller-supplied channel string should be looked up
type ChannelKind int

const (
	// ChannelKindHandle is a handle or legacy username, with or without "@"
	ChannelKindHandle ChannelKind = iota
	// ChannelKindID is a canonical "UC..." channel ID
	ChannelKindID
)

func (k ChannelKind) String() string {
	if k == ChannelKindID {
		return "id"
	}
	return "handle"
}

// ChannelRef is a classified channel identifier
type ChannelRef struct {
	Kind     ChannelKind
	Raw      string // trimmed input
	Handle   string // input without a leading "@"
	AtHandle string // input with a leading "@"
}

// ClassifyChannel trims the input and decides whether it is already a
// canonical channel ID. Only the trimmed input is checked, so "@UC..." is a handle.
func ClassifyChannel(channel string) ChannelRef {
	raw := strings.TrimSpace(channel)
	handle := strings.TrimPrefix(raw, "@")

	kind := ChannelKindHandle
	if IsChannelID(raw) {
		kind = ChannelKindID
	}

	return ChannelRef{
		Kind:     kind,
		Raw:      raw,
		Handle:   handle,
		AtHandle: "@" + handle,
	}
}

// IsChannelID reports whether s has the shape of a canonical channel ID
func IsChannelID(s string) bool {
	return strings.HasPrefix(s, "UC") && len(s) > 10
}
