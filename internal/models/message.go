// internal/models/message.go
package models

import "time"

// Direction of a conversation message relative to the candidate.
type Direction string

const (
	DirectionInbound  Direction = "inbound"  // candidate -> bot
	DirectionOutbound Direction = "outbound" // bot -> candidate
)

// Message is one conversation event in a candidate's activity window.
// Sentiment is computed upstream by the conversation pipeline; zero means
// not scored.
type Message struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	Direction   Direction `json:"direction"`
	Content     string    `json:"content"`
	Sentiment   float64   `json:"sentiment,omitempty"` // [-1,1]
	Timestamp   time.Time `json:"timestamp"`
}
