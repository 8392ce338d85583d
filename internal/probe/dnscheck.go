package probe

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"sitewatch/internal/domain"
)

var dnsTimeout = 10 * time.Second

// PropagationServers are the public resolvers the propagation check
// queries. Per-resolver success shows whether a recent record change has
// reached the big caches yet.
var PropagationServers = []string{
	"8.8.8.8",        // Google
	"1.1.1.1",        // Cloudflare
	"208.67.222.222", // OpenDNS
}

// CheckDNSRecords resolves the full record set for a hostname. Every
// record type is looked up in parallel and independently defaults to empty
// on its own failure; the operation as a whole never fails.
func CheckDNSRecords(ctx context.Context, host string) *domain.DNSInfo {
	cctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	r := &net.Resolver{} // OS resolver
	info := &domain.DNSInfo{
		A:    []string{},
		AAAA: []string{},
		MX:   []domain.MXRecord{},
		TXT:  []string{},
		NS:   []string{},
	}

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		defer wg.Done()
		if ips, err := r.LookupIP(cctx, "ip4", host); err == nil {
			for _, ip := range ips {
				info.A = append(info.A, ip.String())
			}
		}
	}()
	go func() {
		defer wg.Done()
		if ips, err := r.LookupIP(cctx, "ip6", host); err == nil {
			for _, ip := range ips {
				info.AAAA = append(info.AAAA, ip.String())
			}
		}
	}()
	go func() {
		defer wg.Done()
		if mxs, err := r.LookupMX(cctx, host); err == nil {
			for _, mx := range mxs {
				info.MX = append(info.MX, domain.MXRecord{
					Host: strings.TrimSuffix(mx.Host, "."),
					Pref: mx.Pref,
				})
			}
		}
	}()
	go func() {
		defer wg.Done()
		if txts, err := r.LookupTXT(cctx, host); err == nil {
			info.TXT = txts
		}
	}()
	go func() {
		defer wg.Done()
		if nss, err := r.LookupNS(cctx, host); err == nil {
			for _, ns := range nss {
				info.NS = append(info.NS, strings.TrimSuffix(ns.Host, "."))
			}
		}
	}()
	go func() {
		defer wg.Done()
		// LookupCNAME answers with the name itself when no CNAME exists;
		// only a real alias is worth reporting.
		if cname, err := r.LookupCNAME(cctx, host); err == nil && !strings.EqualFold(cname, host+".") {
			info.CNAME = strings.TrimSuffix(cname, ".")
		}
	}()
	wg.Wait()

	info.SOA = lookupSOA(host)
	info.Propagation = checkPropagation(host)
	info.LastCheck = time.Now().UTC()
	return info
}

// lookupSOA queries the zone's SOA directly; the net package has no SOA
// lookup.
func lookupSOA(host string) *domain.SOARecord {
	c := &dns.Client{Timeout: dnsTimeout}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeSOA)

	resp, _, err := c.Exchange(m, resolverAddr(PropagationServers[0]))
	if err != nil || resp.Rcode != dns.RcodeSuccess {
		return nil
	}
	for _, rr := range append(resp.Answer, resp.Ns...) {
		if soa, ok := rr.(*dns.SOA); ok {
			return &domain.SOARecord{
				PrimaryNS: strings.TrimSuffix(soa.Ns, "."),
				Mailbox:   strings.TrimSuffix(soa.Mbox, "."),
				Serial:    soa.Serial,
				Refresh:   soa.Refresh,
				Retry:     soa.Retry,
				Expire:    soa.Expire,
				MinTTL:    soa.Minttl,
			}
		}
	}
	return nil
}

func checkPropagation(host string) []domain.PropagationCheck {
	checks := make([]domain.PropagationCheck, len(PropagationServers))
	var wg sync.WaitGroup
	for i, server := range PropagationServers {
		wg.Add(1)
		go func(i int, server string) {
			defer wg.Done()
			checks[i] = queryResolver(host, server)
		}(i, server)
	}
	wg.Wait()
	return checks
}

// resolverAddr defaults to port 53 unless the entry already carries one.
func resolverAddr(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

func queryResolver(host, server string) domain.PropagationCheck {
	c := &dns.Client{Timeout: dnsTimeout}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)

	resp, _, err := c.Exchange(m, resolverAddr(server))
	if err != nil {
		return domain.PropagationCheck{Server: server, Propagated: false, Error: err.Error()}
	}
	if resp.Rcode != dns.RcodeSuccess {
		return domain.PropagationCheck{Server: server, Propagated: false, Error: dns.RcodeToString[resp.Rcode]}
	}
	return domain.PropagationCheck{Server: server, Propagated: true}
}
