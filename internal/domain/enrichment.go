package domain

import "time"

// TLSInfo describes the certificate currently served for a url target's
// hostname.
type TLSInfo struct {
	Issuer        string    `json:"issuer"`
	ExpiresAt     time.Time `json:"validTo"`
	DaysRemaining int       `json:"daysRemaining"`
}

// DomainInfo is a best-available-match view of a WHOIS response. Registry
// output is free-form, so string fields fall back to the "Not available"
// sentinel rather than being absent; dates are kept as the registry gave
// them, normalized to ISO form when a parser recognized the format.
type DomainInfo struct {
	Registrar     string   `json:"registrar"`
	Owner         string   `json:"owner"`
	Email         string   `json:"email"`
	Country       string   `json:"country"`
	CreationDate  string   `json:"creationDate"`
	ExpiryDate    string   `json:"expiryDate"`
	UpdatedDate   string   `json:"updatedDate"`
	Nameservers   []string `json:"nameservers"`
	Status        []string `json:"status"`
	DaysRemaining *int     `json:"daysRemaining"`
}

type MXRecord struct {
	Host string `json:"host"`
	Pref uint16 `json:"priority"`
}

type SOARecord struct {
	PrimaryNS string `json:"nsname"`
	Mailbox   string `json:"hostmaster"`
	Serial    uint32 `json:"serial"`
	Refresh   uint32 `json:"refresh"`
	Retry     uint32 `json:"retry"`
	Expire    uint32 `json:"expire"`
	MinTTL    uint32 `json:"minttl"`
}

// PropagationCheck reports whether one well-known public resolver answered
// for the hostname.
type PropagationCheck struct {
	Server     string `json:"server"`
	Propagated bool   `json:"propagated"`
	Error      string `json:"error,omitempty"`
}

// DNSInfo carries the resolved record set for a url target's hostname.
// Each record slice is independently empty when its lookup failed.
type DNSInfo struct {
	A           []string           `json:"a"`
	AAAA        []string           `json:"aaaa"`
	MX          []MXRecord         `json:"mx"`
	TXT         []string           `json:"txt"`
	NS          []string           `json:"ns"`
	CNAME       string             `json:"cname,omitempty"`
	SOA         *SOARecord         `json:"soa"`
	Propagation []PropagationCheck `json:"propagation"`
	LastCheck   time.Time          `json:"lastCheck"`
}

// IPInfo is geolocation plus reverse DNS for an ip target. The IP field is
// always set, even when the geolocation call failed (Error says why).
type IPInfo struct {
	IP          string    `json:"ip"`
	Country     string    `json:"country,omitempty"`
	CountryCode string    `json:"countryCode,omitempty"`
	Region      string    `json:"region,omitempty"`
	RegionName  string    `json:"regionName,omitempty"`
	City        string    `json:"city,omitempty"`
	Zip         string    `json:"zip,omitempty"`
	Lat         float64   `json:"lat,omitempty"`
	Lon         float64   `json:"lon,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	ISP         string    `json:"isp,omitempty"`
	Org         string    `json:"org,omitempty"`
	AS          string    `json:"as,omitempty"`
	ReverseDNS  string    `json:"reverseDns,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastCheck   time.Time `json:"lastCheck"`
}

// PortResult classifies one TCP connect attempt.
type PortResult struct {
	Status    string   `json:"status"` // open | closed | timeout | error
	LatencyMS *float64 `json:"responseTime,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// PortScan is the outcome of an on-demand scan of an ip target.
type PortScan struct {
	IP        string             `json:"ip"`
	Ports     map[int]PortResult `json:"ports"`
	LastCheck time.Time          `json:"lastCheck"`
}
