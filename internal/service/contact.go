package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid"

	"portfolio_service/internal/common"
)

const (
	MinContactMessageLen = 10
	MaxContactMessageLen = 5000
)

var (
	ErrMissingContactFields = fmt.Errorf("%w: name, email, subject and message are required", common.ErrValidation)
	ErrContactMessageLength = fmt.Errorf("%w: message must be between %d and %d characters", common.ErrValidation, MinContactMessageLen, MaxContactMessageLen)
)

// ContactInput is a message left by a visitor. PortfolioUserID and
// PortfolioResumeID name the portfolio it was sent from and may be empty.
type ContactInput struct {
	Name              string
	Email             string
	Subject           string
	Message           string
	PortfolioUserID   string
	PortfolioResumeID string
	ClientIP          string
}

// SubmitContact validates a contact form submission and records it in the
// log. The message body itself is never logged.
func (s *service) SubmitContact(ctx context.Context, in ContactInput) error {
	const op = "service.SubmitContact"

	log := s.log.With(slog.String("op", op))

	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" ||
		strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Message) == "" {
		return ErrMissingContactFields
	}
	email := normalizeEmail(in.Email)
	if !IsValidEmail(email) {
		return ErrInvalidEmail
	}
	if n := utf8.RuneCountInString(in.Message); n < MinContactMessageLen || n > MaxContactMessageLen {
		return ErrContactMessageLength
	}

	attrs := []any{
		slog.String("from", email),
		slog.String("subject", in.Subject),
		slog.Int("message_length", utf8.RuneCountInString(in.Message)),
		slog.String("client_ip", in.ClientIP),
	}

	if in.PortfolioUserID != "" {
		attrs = append(attrs,
			slog.String("portfolio_user_id", in.PortfolioUserID),
			slog.String("portfolio_resume_id", in.PortfolioResumeID),
			slog.Bool("owner_found", s.portfolioOwnerExists(ctx, in.PortfolioUserID)),
		)
	}

	log.Info("contact form submitted", attrs...)

	return nil
}

func (s *service) portfolioOwnerExists(ctx context.Context, rawID string) bool {
	id, err := uuid.FromString(rawID)
	if err != nil {
		return false
	}

	_, err = s.storage.GetUserByID(ctx, id)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.log.Warn("portfolio owner lookup failed", slog.String("user_id", rawID), slog.Any("error", err))
	}
	return err == nil
}
