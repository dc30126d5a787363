package models

import "time"

// EventTypeUserCreated tags messages announcing a newly created user.
const EventTypeUserCreated = "USER_CREATED"

// EmailTypeWelcome tags welcome-notification messages for the email service.
const EmailTypeWelcome = "WELCOME"

// UserCreatedEvent is the immutable snapshot published to the broker when a
// user record is created. It is built once per creation and never mutated.
type UserCreatedEvent struct {
	UserID           int64  `json:"userId"`
	UserUUID         string `json:"userUuid"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	GivenName        string `json:"givenName,omitempty"`
	FamilyName       string `json:"familyName,omitempty"`
	IdentityProvider string `json:"identityProvider"`
	Role             string `json:"role"`
	CreatedAt        string `json:"createdAt"`
	EventType        string `json:"eventType"`
	EventTimestamp   string `json:"eventTimestamp"`
}

// NewUserCreatedEvent builds the creation snapshot for a user. The emission
// timestamp is taken from at rather than the clock so publishers can pin it.
func NewUserCreatedEvent(u *User, at time.Time) *UserCreatedEvent {
	event := &UserCreatedEvent{
		UserID:           u.ID,
		UserUUID:         u.PublicID.String(),
		Email:            u.Email,
		Name:             u.DisplayName(),
		IdentityProvider: string(u.Provider),
		Role:             string(u.Role),
		CreatedAt:        u.CreatedAt.UTC().Format(time.RFC3339),
		EventType:        EventTypeUserCreated,
		EventTimestamp:   at.UTC().Format(time.RFC3339),
	}
	if u.GivenName != nil {
		event.GivenName = *u.GivenName
	}
	if u.FamilyName != nil {
		event.FamilyName = *u.FamilyName
	}
	return event
}

// WelcomeEmailMessage is the simplified payload sent directly to the email
// service's queue alongside the user-created event.
type WelcomeEmailMessage struct {
	RecipientEmail string            `json:"recipientEmail"`
	RecipientName  string            `json:"recipientName"`
	EmailType      string            `json:"emailType"`
	TemplateData   map[string]string `json:"templateData"`
}

// NewWelcomeEmailMessage builds the welcome notification for a new user.
func NewWelcomeEmailMessage(u *User) *WelcomeEmailMessage {
	name := u.DisplayName()
	return &WelcomeEmailMessage{
		RecipientEmail: u.Email,
		RecipientName:  name,
		EmailType:      EmailTypeWelcome,
		TemplateData: map[string]string{
			"userName": name,
		},
	}
}
