package config

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// NotificationMessage is the envelope published to the notification topic.
// Delivery is fire-and-forget: a publish failure never rolls back the ledger
// write that produced the outbox row.
type NotificationMessage struct {
	ID            int       `json:"id"`
	Kind          string    `json:"kind"`
	UserId        int       `json:"user_id"`
	ReferenceId   int       `json:"reference_id"`
	ReferenceType string    `json:"reference_type"`
	Payload       []byte    `json:"payload"`
	CorrelationId string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getNotificationTopicID() string {
	if v := os.Getenv("PUBSUB_NOTIFICATION_TOPIC"); v != "" {
		return v
	}
	return "greenloop-notifications"
}

// GetPubSubClient returns a Pub/Sub client, initializing lazily.
// Uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is set.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()

	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("pubsub project id not configured (set PUBSUB_PROJECT_ID)")
	}

	var opts []option.ClientOption
	if creds := os.Getenv("PUBSUB_CREDENTIALS_JSON"); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	pubsubClient = client
	return pubsubClient, nil
}

// PublishNotification publishes one message and waits for the server ack.
func PublishNotification(ctx context.Context, data []byte) (string, error) {
	client, err := GetPubSubClient(ctx)
	if err != nil {
		return "", err
	}
	topic := client.Topic(getNotificationTopicID())
	defer topic.Stop()

	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	return res.Get(ctx)
}
