// Package email delivers operational alert mail for the hand-off protocol
// through Amazon SES.
package email

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Sender delivers one email. Satisfied by SESV2Sender; tests substitute
// fakes.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// SESV2Sender implements Sender on the AWS SES v2 API.
type SESV2Sender struct {
	client    *sesv2.Client
	fromEmail string
}

// NewSESV2Sender creates a sender for the given region and verified sender
// address. Credentials come from the standard AWS environment chain.
func NewSESV2Sender(ctx context.Context, region, fromEmail string) (*SESV2Sender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("email.NewSESV2Sender: %w", err)
	}

	return &SESV2Sender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
	}, nil
}

// SendEmail sends one message with both plain-text and HTML bodies.
func (s *SESV2Sender) SendEmail(ctx context.Context, to, subject, textBody, htmlBody string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: &s.fromEmail,
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    &subject,
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    &textBody,
						Charset: aws.String("UTF-8"),
					},
					Html: &types.Content{
						Data:    &htmlBody,
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("email.SendEmail: %w", err)
	}
	log.Printf("alert email sent to %s", to)
	return nil
}
