package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebhookSend(t *testing.T) {
	var got string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		w.WriteHeader(200)
	}))
	defer s.Close()

	wh := NewWebhook(s.URL)
	if err := wh.Send(context.Background(), "ignored", "Site down", "details here"); err != nil {
		t.Fatal(err)
	}

	var p struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(got), &p); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(p.Text, "*Site down*\n") {
		t.Fatalf("payload should lead with the bolded subject, got %q", p.Text)
	}
	if !strings.Contains(p.Text, "details here") {
		t.Fatalf("payload missing body: %q", p.Text)
	}
}

func TestWebhookSend_Non2xx(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", 500)
	}))
	defer s.Close()

	wh := NewWebhook(s.URL)
	if err := wh.Send(context.Background(), "", "s", "b"); err == nil {
		t.Fatal("want error on non-2xx")
	}
}

func TestWebhook_NilWhenUnconfigured(t *testing.T) {
	wh := NewWebhook("")
	if wh != nil {
		t.Fatalf("empty url should yield nil, got %+v", wh)
	}
	// Nil receiver is a silent no-op.
	if err := wh.Send(context.Background(), "", "s", "b"); err != nil {
		t.Fatalf("nil webhook should no-op, got %v", err)
	}
}

func TestEmail_NilWhenUnconfigured(t *testing.T) {
	e := NewEmail("", "", "", "", "")
	if e != nil {
		t.Fatalf("no host should yield nil, got %+v", e)
	}
	if err := e.Send(context.Background(), "a@b.test", "s", "b"); err != nil {
		t.Fatalf("nil email should no-op, got %v", err)
	}
}

func TestMulti_SkipsNilAndCollectsFirstError(t *testing.T) {
	calls := 0
	ok := notifierFunc(func(ctx context.Context, to, subject, body string) error {
		calls++
		return nil
	})

	m := Multi{nil, NewWebhook(""), ok}
	if err := m.Send(context.Background(), "a@b.test", "s", "b"); err != nil {
		t.Fatalf("want nil error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("live sink should still be called, got %d", calls)
	}
}

type notifierFunc func(ctx context.Context, to, subject, body string) error

func (f notifierFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}
