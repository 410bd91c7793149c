package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"talehub/internal/storage/memory"
	"talehub/pkg/protocol"
)

func TestHTTPSink_Deliver(t *testing.T) {
	var got protocol.NotifyRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL + "/")
	err := sink.Deliver(context.Background(), Event{
		RecipientID: 3, Username: "alice", Email: "alice@example.com",
		Message: "welcome", Sentiment: SentimentPositive,
	})
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if path != "/notify_user" {
		t.Errorf("path = %s, want /notify_user", path)
	}
	want := protocol.NotifyRequest{Username: "alice", Email: "alice@example.com", UserID: 3, Message: "welcome", Sentiment: "positive"}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
}

func TestHTTPSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewHTTPSink(srv.URL).Deliver(context.Background(), Event{}); err == nil {
		t.Error("Deliver() should fail on a 502")
	}
}

type fakePublisher struct {
	subject string
	data    []byte
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject, p.data = subject, data
	return nil
}

func TestNATSSink_Deliver(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "talehub.notifications")

	if err := sink.Deliver(context.Background(), Event{RecipientID: 5, Message: "liked"}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if pub.subject != "talehub.notifications" {
		t.Errorf("subject = %s", pub.subject)
	}
	var got protocol.NotifyRequest
	if err := json.Unmarshal(pub.data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserID != 5 || got.Message != "liked" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestStoreSink_Deliver(t *testing.T) {
	store := memory.New()
	sink := NewStoreSink(store)

	if err := sink.Deliver(context.Background(), Event{RecipientID: 4, Message: "hi", Sentiment: SentimentNegative}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	list, err := store.ListNotifications(context.Background(), 4, 10)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(list) != 1 || list[0].Message != "hi" || list[0].Sentiment != "negative" {
		t.Errorf("unexpected notifications %+v", list)
	}
}
