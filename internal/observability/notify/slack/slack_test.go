package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shepherd-church/shepherd/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
	if _, err := NewClient(Config{WebhookURL: "https://hooks.slack.com/x", AdminURL: "/admin"}); err == nil {
		t.Fatal("expected error for relative admin url")
	}
}

func TestMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#office",
		Username:   "bot",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.message(notify.RoleChangePayload{
		Event:        "role_assigned",
		ActorUID:     "u-1",
		ActorEmail:   "pastor@example.org",
		TargetUID:    "u-2",
		TargetEmail:  "treasurer@example.org",
		PreviousRole: "user",
		NewRole:      "treasury",
		OccurredAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})

	if msg.Username != "bot" || msg.Channel != "#office" {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	for _, want := range []string{
		"*Role changed*",
		"Account: treasurer@example.org (u-2)",
		"Changed by: pastor@example.org (u-1)",
		"Role: user → treasury",
		"When: 2026-03-01T09:00:00Z",
	} {
		if !strings.Contains(msg.Text, want) {
			t.Fatalf("expected %q in text:\n%s", want, msg.Text)
		}
	}
}

func TestMessageEscapesAndLinks(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		AdminURL:   "https://admin.example.org/admin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.message(notify.RoleChangePayload{
		Event:       "deactivated",
		TargetUID:   "u-9",
		TargetEmail: "<script>@example.org",
	})

	if !strings.Contains(msg.Text, "*Account deactivated*") {
		t.Fatalf("unexpected headline: %s", msg.Text)
	}
	if !strings.Contains(msg.Text, "&lt;script&gt;@example.org") {
		t.Fatalf("expected email to be escaped: %s", msg.Text)
	}
	if !strings.Contains(msg.Text, "<https://admin.example.org/admin/roles?q=u-9|u-9>") {
		t.Fatalf("expected account link: %s", msg.Text)
	}
	if strings.Contains(msg.Text, "Role:") {
		t.Fatalf("activation changes carry no role line: %s", msg.Text)
	}
}

func TestSendRoleChangeRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg map[string]any
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Errorf("invalid json body: %v", err)
		}
		if calls.Add(1) == 1 {
			http.Error(w, "rate_limited", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := client.SendRoleChange(context.Background(), notify.RoleChangePayload{Event: "role_assigned"}); err != nil {
		t.Fatalf("SendRoleChange error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestSendRoleChangeReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = client.SendRoleChange(context.Background(), notify.RoleChangePayload{})
	if err == nil || !strings.Contains(err.Error(), "invalid_token") {
		t.Fatalf("expected webhook error, got %v", err)
	}
}
