package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"regexp"
	"strings"
	"time"

	"sitewatch/internal/domain"
)

// NotAvailable is the explicit sentinel for a logical field no candidate
// key matched. Registries disagree wildly on field names, so absence of a
// match is an expected outcome, not an error.
const NotAvailable = "Not available"

const (
	ianaWhois    = "whois.iana.org"
	whoisPort    = "43"
	whoisTimeout = 15 * time.Second
)

// WhoisFieldSet lists, per logical field, the response keys to probe in
// order; the first present value wins. Keys are matched case-insensitively
// against the raw registry output. This is configuration data: registries
// invent new spellings, so embedders may extend the lists.
type WhoisFieldSet struct {
	Registrar   []string
	Owner       []string
	Email       []string
	Creation    []string
	Expiry      []string
	Updated     []string
	Nameservers []string
	Status      []string
}

// WhoisFields is the default candidate-key set, accumulated from the
// registries seen in practice (Verisign, Donuts, ccTLDs).
var WhoisFields = WhoisFieldSet{
	Registrar:   []string{"registrar", "registrant", "registrant organization", "registrant name", "sponsoring registrar"},
	Owner:       []string{"owner", "registrant name", "registrant", "person", "organization", "org"},
	Email:       []string{"email", "e-mail", "registrant email", "registrar abuse contact email"},
	Creation:    []string{"creation date", "domain registration date", "created date", "domain create date", "created on", "created", "registered on"},
	Expiry:      []string{"registry expiry date", "expiration date", "domain expiration date", "expiry date", "expires on", "expires", "expiry"},
	Updated:     []string{"updated date", "last updated date", "last modified", "modified date", "update date", "last update", "changed"},
	Nameservers: []string{"name server", "nameservers", "name servers", "nserver"},
	Status:      []string{"domain status", "status"},
}

// CheckDomain runs a WHOIS lookup for the given hostname and extracts a
// best-available-match DomainInfo. Returns nil when the query itself
// fails; a query that succeeds but yields unrecognizable fields still
// returns a DomainInfo full of NotAvailable sentinels.
func CheckDomain(ctx context.Context, host string) *domain.DomainInfo {
	raw, err := whoisQuery(ctx, host)
	if err != nil {
		return nil
	}
	fields := parseWhoisResponse(raw)
	if len(fields) == 0 {
		return nil
	}

	if strings.HasSuffix(host, ".br") {
		return brDomainInfo(fields)
	}

	info := &domain.DomainInfo{
		Registrar:    firstValue(fields, WhoisFields.Registrar),
		Owner:        firstValue(fields, WhoisFields.Owner),
		Email:        firstValue(fields, WhoisFields.Email),
		CreationDate: firstValue(fields, WhoisFields.Creation),
		ExpiryDate:   firstValue(fields, WhoisFields.Expiry),
		UpdatedDate:  firstValue(fields, WhoisFields.Updated),
		Nameservers:  allValues(fields, WhoisFields.Nameservers),
		Status:       allValues(fields, WhoisFields.Status),
		Country:      firstValue(fields, []string{"country", "registrant country"}),
	}
	if info.CreationDate == NotAvailable {
		info.CreationDate = ""
	}
	if info.ExpiryDate == NotAvailable {
		info.ExpiryDate = ""
	}
	if info.UpdatedDate == NotAvailable {
		info.UpdatedDate = ""
	}
	info.DaysRemaining = daysRemaining(info.ExpiryDate)
	return info
}

// brDomainInfo handles registro.br output, which uses compact YYYYMMDD
// dates and fixed lowercase keys.
func brDomainInfo(fields map[string][]string) *domain.DomainInfo {
	first := func(key string) string {
		if vs := fields[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	// registro.br suffixes dates with a handle ("20020101 #123"); keep the
	// date token only.
	firstToken := func(s string) string {
		f := strings.Fields(s)
		if len(f) == 0 {
			return ""
		}
		return f[0]
	}
	owner := first("owner")
	if owner == "" {
		owner = first("person")
	}
	if owner == "" {
		owner = NotAvailable
	}
	email := first("e-mail")
	if email == "" {
		email = NotAvailable
	}
	country := first("country")
	if country == "" {
		country = "BR"
	}

	info := &domain.DomainInfo{
		Registrar:    "Registro.br",
		Owner:        owner,
		Email:        email,
		Country:      country,
		CreationDate: parseCompactDate(firstToken(first("created"))),
		ExpiryDate:   parseCompactDate(first("expires")),
		UpdatedDate:  parseCompactDate(firstToken(first("changed"))),
		Nameservers:  fields["nserver"],
		Status:       []string{"registered"},
	}
	info.DaysRemaining = daysRemaining(info.ExpiryDate)
	return info
}

var compactDateRE = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)

// parseCompactDate normalizes a compact YYYYMMDD registry date to ISO form
// at UTC midnight. Anything else passes through verbatim.
func parseCompactDate(s string) string {
	m := compactDateRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return strings.TrimSpace(s)
	}
	t, err := time.Parse("20060102", m[0])
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"20060102",
}

func parseWhoisDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func daysRemaining(expiry string) *int {
	t, ok := parseWhoisDate(expiry)
	if !ok {
		return nil
	}
	d := int(math.Ceil(math.Abs(time.Until(t).Hours()) / 24))
	return &d
}

func firstValue(fields map[string][]string, candidates []string) string {
	for _, key := range candidates {
		if vs := fields[key]; len(vs) > 0 && vs[0] != "" {
			return vs[0]
		}
	}
	return NotAvailable
}

func allValues(fields map[string][]string, candidates []string) []string {
	for _, key := range candidates {
		if vs := fields[key]; len(vs) > 0 {
			return vs
		}
	}
	return []string{}
}

// parseWhoisResponse splits "Key: value" lines into a multimap with
// lowercased keys. Comment lines and the trailing ICANN boilerplate URL
// lines are dropped.
func parseWhoisResponse(raw string) map[string][]string {
	fields := make(map[string][]string)
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		val := strings.TrimSpace(line[idx+1:])
		if key == "" || val == "" || strings.HasPrefix(val, "//") {
			continue
		}
		fields[key] = append(fields[key], val)
	}
	return fields
}

// whoisQuery resolves the authoritative server through IANA, then issues
// the query, following one registrar referral if the registry offers one.
func whoisQuery(ctx context.Context, host string) (string, error) {
	referral, err := whoisExchange(ctx, ianaWhois, host)
	if err != nil {
		return "", err
	}
	server := referredServer(referral, "whois")
	if server == "" {
		return "", fmt.Errorf("whois: no server for %s", host)
	}

	resp, err := whoisExchange(ctx, server, host)
	if err != nil {
		return "", err
	}
	if next := referredServer(resp, "registrar whois server"); next != "" && next != server {
		if deeper, err := whoisExchange(ctx, next, host); err == nil && strings.TrimSpace(deeper) != "" {
			return deeper, nil
		}
	}
	return resp, nil
}

func referredServer(response, key string) string {
	for k, vs := range parseWhoisResponse(response) {
		if k == key && len(vs) > 0 {
			return strings.TrimPrefix(vs[0], "whois://")
		}
	}
	return ""
}

func whoisExchange(ctx context.Context, server, query string) (string, error) {
	d := net.Dialer{Timeout: whoisTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(server, whoisPort))
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(whoisTimeout))

	if _, err := fmt.Fprintf(conn, "%s\r\n", query); err != nil {
		return "", err
	}
	out, err := io.ReadAll(conn)
	if err != nil && len(out) == 0 {
		return "", err
	}
	return string(out), nil
}
