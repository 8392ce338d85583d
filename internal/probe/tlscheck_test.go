package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckTLS(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer s.Close()

	host, port, err := net.SplitHostPort(s.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	old := tlsPort
	tlsPort = port
	defer func() { tlsPort = old }()

	info := CheckTLS(context.Background(), host)
	if info == nil {
		t.Fatal("want certificate info from the test server")
	}
	// httptest's self-signed cert is valid for years from now.
	if !info.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", info.ExpiresAt)
	}
	if info.DaysRemaining <= 0 {
		t.Fatalf("days remaining: got %d", info.DaysRemaining)
	}
}

func TestCheckTLS_NoListener(t *testing.T) {
	old, oldTimeout := tlsPort, tlsDialTimeout
	tlsDialTimeout = 200 * time.Millisecond

	// Reserve and release a port so nothing answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	tlsPort = port
	defer func() { tlsPort, tlsDialTimeout = old, oldTimeout }()

	if info := CheckTLS(context.Background(), "127.0.0.1"); info != nil {
		t.Fatalf("unreachable host should yield nil, got %+v", info)
	}
}

func TestDaysUntil(t *testing.T) {
	if got := daysUntil(time.Now().Add(48*time.Hour + time.Minute)); got != 3 {
		t.Fatalf("partial days round up, got %d", got)
	}
}
