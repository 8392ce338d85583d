package probe

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"strings"
	"time"

	"sitewatch/internal/domain"
)

var (
	tlsDialTimeout = 10 * time.Second
	tlsPort        = "443"
)

// CheckTLS resolves the certificate served on host:443 and reports issuer
// and expiry. A nil return means "TLS unavailable", not that the target is
// down. Chain verification is skipped on purpose: an expired or mis-issued
// certificate is precisely what this check is meant to surface.
func CheckTLS(ctx context.Context, host string) *domain.TLSInfo {
	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: tlsDialTimeout},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true,
		},
	}
	cctx, cancel := context.WithTimeout(ctx, tlsDialTimeout)
	defer cancel()

	conn, err := d.DialContext(cctx, "tcp", net.JoinHostPort(host, tlsPort))
	if err != nil {
		return nil
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil
	}
	leaf := certs[0]

	issuer := leaf.Issuer.CommonName
	if issuer == "" && len(leaf.Issuer.Organization) > 0 {
		issuer = strings.Join(leaf.Issuer.Organization, ", ")
	}
	return &domain.TLSInfo{
		Issuer:        issuer,
		ExpiresAt:     leaf.NotAfter,
		DaysRemaining: daysUntil(leaf.NotAfter),
	}
}

func daysUntil(t time.Time) int {
	return int(math.Ceil(time.Until(t).Hours() / 24))
}
