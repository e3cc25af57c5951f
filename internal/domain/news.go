package domain

import (
	"errors"
	"strings"
	"time"
)

// News is a public situation update shown on the news page.
type News struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate requires a title and content.
func (n News) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(n.Content) == "" {
		return errors.New("content is required")
	}
	return nil
}

// ContactMessage is a message left through the contact form.
type ContactMessage struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate requires a name, a plausible email and a message.
func (m ContactMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name is required")
	}
	if !strings.Contains(m.Email, "@") {
		return errors.New("a valid email is required")
	}
	if strings.TrimSpace(m.Message) == "" {
		return errors.New("message is required")
	}
	return nil
}
