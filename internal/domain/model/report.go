package model

import (
	"strings"
	"time"
)

// Report is one participant's tasting note for one item.
type Report struct {
	Key             string `json:"key"`
	ItemID          string `json:"item_id"`
	ItemName        string `json:"item_name"`
	ParticipantName string `json:"participant_name"`
	Attributes
	Score     Score     `json:"score"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportInput is the client supplied part of a report.
type ReportInput struct {
	Attributes
	Score Score  `json:"score"`
	Notes string `json:"notes" validate:"max=4000"`
}

// DefaultReportInput returns a form pre-filled the way a fresh tasting starts.
// Decoding a request body into it leaves absent fields at their defaults.
func DefaultReportInput() ReportInput {
	return ReportInput{Attributes: DefaultAttributes(), Score: DefaultScore}
}

// Normalize clamps the score and trims the notes.
func (in ReportInput) Normalize() ReportInput {
	in.Score = ClampScore(int(in.Score))
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}

// Session identifies the participant acting on the service.
type Session struct {
	Participant string
}
