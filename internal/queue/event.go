// Package queue defines the message envelopes exchanged with the
// other identity services over the broker, plus the publisher, the
// correlated request/response client and the seed consumer.
package queue

import "encoding/json"

// Queue names shared with the other services.
const (
	UserCreatedQueue = "user.created"
	EmailSendQueue   = "email.send"
	SeedQueue        = "identity.seed"
	UserProfileQueue = "user.profile.get"
)

// ServiceName identifies this service in message envelopes.
const ServiceName = "auth"

// Message is the typed envelope published to other services. TTL, in
// milliseconds, bounds request/response exchanges; zero means none.
type Message struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
	TTL  int64           `json:"ttl,omitempty"`
}

// Response is the correlated reply to a request Message. Error is set
// when the remote handler failed; Reason carries its explanation.
type Response struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Data   json.RawMessage `json:"data"`
	Error  bool            `json:"error"`
	Reason string          `json:"reason,omitempty"`
}

// UserCreatedEvent is emitted after a successful registration so the
// user-profile service can create its side of the account. Delivery
// is fire-and-forget; the collaborator promises at-least-once
// consumption.
type UserCreatedEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// EmailSendEvent asks the email service to dispatch a templated mail.
// For password resets the token is embedded in the reset link.
type EmailSendEvent struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Token    string `json:"token,omitempty"`
}

// SeedCommand triggers a seeding migration on the consuming side.
type SeedCommand struct {
	Task string `json:"task"`
}

// ProfileRequest asks the user service for the profile belonging to a
// user id; the reply arrives as a correlated Response.
type ProfileRequest struct {
	UserID uint64 `json:"user_id"`
}
