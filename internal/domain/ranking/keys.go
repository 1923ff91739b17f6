package ranking

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultGuestName is the identity shared by every report submitted without
// a participant name.
const DefaultGuestName = "ゲスト"

// ItemKey groups reports by the item they describe.
type ItemKey string

// ParticipantKey groups reports by who submitted them. Names are trimmed and
// NFC normalised so visually identical names share a key. Every empty name
// maps to the same guest key, so all anonymous reports count as one participant.
type ParticipantKey string

// NewParticipantKey builds the grouping key for name, using guest for empty names.
func NewParticipantKey(name, guest string) ParticipantKey {
	n := norm.NFC.String(strings.TrimSpace(name))
	if n == "" {
		if guest == "" {
			guest = DefaultGuestName
		}
		return ParticipantKey(guest)
	}
	return ParticipantKey(n)
}
