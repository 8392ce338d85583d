package probe

import (
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startFakeResolver serves canned A and SOA answers for example.test on a
// loopback UDP port and returns its host:port.
func startFakeResolver(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &dns.Server{
		PacketConn: pc,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(req)
			q := req.Question[0]
			switch q.Qtype {
			case dns.TypeA:
				rr, _ := dns.NewRR(q.Name + " 300 IN A 192.0.2.10")
				m.Answer = append(m.Answer, rr)
			case dns.TypeSOA:
				rr, _ := dns.NewRR(q.Name + " 300 IN SOA ns1.example.test. hostmaster.example.test. 2026082901 7200 3600 1209600 300")
				m.Answer = append(m.Answer, rr)
			default:
				m.Rcode = dns.RcodeNameError
			}
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestQueryResolver(t *testing.T) {
	addr := startFakeResolver(t)

	check := queryResolver("example.test", addr)
	if !check.Propagated {
		t.Fatalf("want propagated, got %+v", check)
	}
	if check.Server != addr {
		t.Fatalf("server: got %q", check.Server)
	}
}

func TestQueryResolver_Unreachable(t *testing.T) {
	old := dnsTimeout
	dnsTimeout = 200 * time.Millisecond
	defer func() { dnsTimeout = old }()

	// Reserve a port with nothing listening.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := pc.LocalAddr().String()
	pc.Close()

	check := queryResolver("example.test", addr)
	if check.Propagated {
		t.Fatalf("dead resolver should not count as propagated: %+v", check)
	}
	if check.Error == "" {
		t.Fatalf("want the failure recorded")
	}
}

func TestLookupSOA(t *testing.T) {
	addr := startFakeResolver(t)
	old := PropagationServers
	PropagationServers = []string{addr}
	defer func() { PropagationServers = old }()

	soa := lookupSOA("example.test")
	if soa == nil {
		t.Fatal("want an soa record")
	}
	if soa.PrimaryNS != "ns1.example.test" {
		t.Fatalf("primary ns: got %q", soa.PrimaryNS)
	}
	if soa.Serial != 2026082901 {
		t.Fatalf("serial: got %d", soa.Serial)
	}
	if soa.Refresh != 7200 || soa.Expire != 1209600 {
		t.Fatalf("timers: %+v", soa)
	}
}

func TestResolverAddr(t *testing.T) {
	if got := resolverAddr("8.8.8.8"); got != "8.8.8.8:53" {
		t.Fatalf("got %q", got)
	}
	if got := resolverAddr("127.0.0.1:5353"); got != "127.0.0.1:5353" {
		t.Fatalf("explicit port must be kept, got %q", got)
	}
}
