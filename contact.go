package folio

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/eringen/folio/ratelimit"
)

const (
	contactAction      = "contact-form"
	contactSentMessage = "Message sent successfully!"
	contactLimitMsg    = "Too many contact form submissions. Please try again later."
)

// ContactSubmission is the public contact form payload. Website is a
// honeypot: people never see the field, so anything in it came from a bot.
type ContactSubmission struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
	Website string `json:"website" form:"website"`
}

func (s *ContactSubmission) normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Subject = strings.TrimSpace(s.Subject)
	s.Message = strings.TrimSpace(s.Message)
	if s.Subject == "" {
		who := s.Name
		if who == "" {
			who = "Guest"
		}
		s.Subject = "Portfolio Inquiry from " + who
	}
}

func (s ContactSubmission) validate() error {
	return validateDocument(schemaContact, gojsonschema.NewGoLoader(map[string]any{
		"name":    s.Name,
		"email":   s.Email,
		"subject": s.Subject,
		"message": s.Message,
	}))
}

// SubmitContact runs the contact form pipeline for a client at ip. A
// honeypot hit returns a zero message and no error so the caller answers
// exactly as it would for a real submission. Only valid submissions count
// against the limit, and a failed save gives the attempt back.
func (a *App) SubmitContact(ctx context.Context, ip string, sub ContactSubmission) (ContactMessage, error) {
	if strings.TrimSpace(sub.Website) != "" {
		a.Echo.Logger.Debugf("contact: honeypot filled from %s", ip)
		return ContactMessage{}, nil
	}

	key := ratelimit.Key(contactAction, ip)
	limited, err := a.contactLimiter.TooManyAttempts(ctx, key)
	if err != nil {
		return ContactMessage{}, err
	}
	if limited {
		return ContactMessage{}, a.contactLimitError(ctx, key)
	}

	sub.normalize()
	if err := sub.validate(); err != nil {
		return ContactMessage{}, err
	}

	decision, err := a.contactLimiter.Attempt(ctx, key)
	if err != nil {
		return ContactMessage{}, err
	}
	if !decision.Allowed {
		return ContactMessage{}, &RateLimitError{Message: contactLimitMsg, RetryAfter: decision.RetryAfter}
	}

	msg, err := a.Store.CreateContactMessage(ctx, ContactMessage{
		Name:    sub.Name,
		Email:   sub.Email,
		Subject: sub.Subject,
		Message: sub.Message,
	})
	if err != nil {
		if undoErr := a.contactLimiter.Undo(ctx, key); undoErr != nil {
			a.Echo.Logger.Warnf("contact: undo attempt for %s: %v", ip, undoErr)
		}
		return ContactMessage{}, &PersistenceError{Message: "Failed to send message. Please try again later.", Err: err}
	}
	a.Echo.Logger.Infof("contact: message #%d from %s (%d left this window)", msg.ID, ip, decision.Remaining)
	return msg, nil
}

func (a *App) contactLimitError(ctx context.Context, key string) error {
	retry, err := a.contactLimiter.AvailableIn(ctx, key)
	if err != nil {
		retry = a.contactLimiter.Window()
	}
	return &RateLimitError{Message: contactLimitMsg, RetryAfter: retry}
}

func (a *App) handleContact(c echo.Context) error {
	var sub ContactSubmission
	if err := c.Bind(&sub); err != nil {
		ve := &ValidationError{}
		ve.Add("body", "The request body must be a valid JSON object.")
		return ve
	}
	if _, err := a.SubmitContact(c.Request().Context(), c.RealIP(), sub); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": contactSentMessage})
}
