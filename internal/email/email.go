package email

import (
	"context"
	"fmt"
	"time"

	"pocketchef/internal/config"
	"pocketchef/internal/logger"
	"pocketchef/internal/models"

	"github.com/mailgun/mailgun-go/v5"
)

const sendTimeout = 10 * time.Second

type Service struct {
	client      mailgun.Mailgun
	domain      string
	senderEmail string
	senderName  string
	enabled     bool
}

func NewService(cfg *config.Config) *Service {
	enabled := cfg.MailEnabled()

	var client mailgun.Mailgun
	if enabled {
		client = mailgun.NewMailgun(cfg.MailgunAPIKey)
	}

	return &Service{
		client:      client,
		domain:      cfg.MailgunDomain,
		senderEmail: cfg.MailgunSenderEmail,
		senderName:  cfg.MailgunSenderName,
		enabled:     enabled,
	}
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.enabled
}

// ShareRecipe mails a recipe card to a friend on behalf of the logged-in
// user. imageURL must already be resolved against the API host.
func (s *Service) ShareRecipe(ctx context.Context, to, from string, recipe models.Recipe, imageURL string) error {
	if !s.IsEnabled() {
		return fmt.Errorf("email service is not configured")
	}

	subject := fmt.Sprintf("%s shared a recipe with you: %s", from, recipe.Title)

	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		subject,
		shareText(from, recipe),
		to,
	)
	message.SetHTML(shareHTML(from, recipe, imageURL))

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send recipe to %s: %w", to, err)
	}

	logger.Info("Recipe shared by email", "recipe_id", recipe.ID, "email", to, "response", fmt.Sprintf("%v", resp))
	return nil
}
