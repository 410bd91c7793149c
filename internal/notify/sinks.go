package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"talehub/internal/domain"
	"talehub/pkg/protocol"

	"github.com/nats-io/nats.go"
)

func payload(e Event) protocol.NotifyRequest {
	return protocol.NotifyRequest{
		Username:  e.Username,
		Email:     e.Email,
		UserID:    e.RecipientID,
		Message:   e.Message,
		Sentiment: e.Sentiment,
	}
}

// HTTPSink POSTs events to an external notification service at
// <baseURL>/notify_user. The response body is ignored.
type HTTPSink struct {
	url    string
	client *http.Client
}

func NewHTTPSink(baseURL string) *HTTPSink {
	return &HTTPSink{
		url:    strings.TrimRight(baseURL, "/") + "/notify_user",
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSink) Deliver(ctx context.Context, e Event) error {
	body, err := json.Marshal(payload(e))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify service returned %s", resp.Status)
	}
	return nil
}

// Publisher is the part of *nats.Conn the NATS sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes the same JSON payload as HTTPSink to a subject.
type NATSSink struct {
	pub     Publisher
	subject string
}

func NewNATSSink(pub Publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

// ConnectNATS dials the server for a NATSSink.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("talehub"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func (s *NATSSink) Deliver(_ context.Context, e Event) error {
	data, err := json.Marshal(payload(e))
	if err != nil {
		return err
	}
	if err := s.pub.Publish(s.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.subject, err)
	}
	return nil
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// StoreSink persists events so they show up in the account's notification list.
type StoreSink struct {
	store NotificationStore
}

func NewStoreSink(store NotificationStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Deliver(ctx context.Context, e Event) error {
	_, err := s.store.CreateNotification(ctx, domain.Notification{
		RecipientID: e.RecipientID,
		Message:     e.Message,
		Sentiment:   e.Sentiment,
	})
	return err
}
