package firebase

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client sends push notifications through Firebase Cloud Messaging.
// Messages are addressed to per-user topics so no device token storage is
// needed server-side; clients subscribe to their own topic after sign-in.
type Client struct {
	msgClient *messaging.Client
}

// NewClient initializes a Firebase app and returns an FCM client.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient}, nil
}

// LinkCompleted notifies a user's devices that a new bank account was linked.
func (c *Client) LinkCompleted(ctx context.Context, userID, bankName string) error {
	msg := &messaging.Message{
		Topic: userTopic(userID),
		Notification: &messaging.Notification{
			Title: "Bank account linked",
			Body:  fmt.Sprintf("%s is now connected to your account", bankName),
		},
		Data: map[string]string{
			"event":    "bank_linked",
			"bankName": bankName,
		},
	}

	id, err := c.msgClient.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}

	log.Printf("FCM link notification sent: %s", id)
	return nil
}

func userTopic(userID string) string {
	return "user-" + userID
}
