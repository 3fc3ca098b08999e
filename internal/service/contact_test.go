package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_service/internal/common"
)

func validContact() ContactInput {
	return ContactInput{
		Name:    "Visitor",
		Email:   "Visitor@Example.com",
		Subject: "Hello",
		Message: "I enjoyed your portfolio.",
	}
}

func TestSubmitContact_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(*ContactInput)
		want   error
	}{
		{"missing name", func(in *ContactInput) { in.Name = "" }, ErrMissingContactFields},
		{"blank subject", func(in *ContactInput) { in.Subject = "   " }, ErrMissingContactFields},
		{"missing message", func(in *ContactInput) { in.Message = "" }, ErrMissingContactFields},
		{"bad email", func(in *ContactInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"short message", func(in *ContactInput) { in.Message = "too short" }, ErrContactMessageLength},
		{"long message", func(in *ContactInput) { in.Message = strings.Repeat("a", MaxContactMessageLen+1) }, ErrContactMessageLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validContact()
			tt.modify(&in)

			err := f.svc.SubmitContact(ctx, in)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestSubmitContact_LengthBoundaries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for _, msg := range []string{
		strings.Repeat("a", MinContactMessageLen),
		strings.Repeat("я", MinContactMessageLen),
		strings.Repeat("a", MaxContactMessageLen),
	} {
		in := validContact()
		in.Message = msg
		assert.NoError(t, f.svc.SubmitContact(ctx, in))
	}
}

func TestSubmitContact_LogsMetadataOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var buf bytes.Buffer
	f.svc.log = slog.New(slog.NewTextHandler(&buf, nil))

	owner := f.register(t, "owner@example.com").User

	in := validContact()
	in.Message = "a secret message body"
	in.PortfolioUserID = owner.ID.String()
	in.PortfolioResumeID = "r1"
	require.NoError(t, f.svc.SubmitContact(context.Background(), in))

	out := buf.String()
	assert.Contains(t, out, "contact form submitted")
	assert.Contains(t, out, "from=visitor@example.com")
	assert.Contains(t, out, "message_length=21")
	assert.Contains(t, out, "owner_found=true")
	assert.NotContains(t, out, "secret message body")

	buf.Reset()
	in.PortfolioUserID = uuid.Must(uuid.NewV4()).String()
	require.NoError(t, f.svc.SubmitContact(context.Background(), in))
	assert.Contains(t, buf.String(), "owner_found=false")
}
