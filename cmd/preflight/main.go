// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"
)

// preflight verifies the runtime prerequisites the monitor depends on
// before you bother starting the server.
func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	// ICMP checks shell out to the OS ping binary.
	if _, err := exec.LookPath("ping"); err != nil {
		fail("ping binary not found on PATH; ip targets cannot be checked")
	}
	ok("ping binary found")

	// Outbound DNS must work for url enrichment.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := net.DefaultResolver.LookupHost(ctx, "example.com"); err != nil {
		warn("DNS resolution failed (" + err.Error() + "); url enrichment will degrade")
	} else {
		ok("DNS resolution works")
	}

	// Notifications are optional, but half-configured SMTP is a bug.
	host := os.Getenv("SMTP_HOST")
	user := os.Getenv("SMTP_USER")
	switch {
	case host == "" && user == "":
		warn("SMTP not configured; downtime emails disabled")
	case host == "" || user == "":
		fail("SMTP half-configured: set both SMTP_HOST and SMTP_USER (plus SMTP_PASS)")
	default:
		ok("SMTP configured for " + host)
	}

	fmt.Println("preflight passed")
}
