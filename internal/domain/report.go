package domain

import "time"

// ProbeReport is the enriched result of one probe: everything the check
// learned plus identity fields so observers can render it without another
// lookup. It is what CheckNow returns and what the live-update channel
// broadcasts.
type ProbeReport struct {
	TargetID TargetID `json:"target_id"`
	Name     string   `json:"name"`
	Address  string   `json:"url"`
	Category string   `json:"category"`
	Kind     Kind     `json:"type"`

	Status          Status      `json:"status"`
	LatencyMS       *float64    `json:"responseTime"`
	StatusCode      *int        `json:"lastStatusCode,omitempty"`
	Error           string      `json:"error,omitempty"`
	IsAnomalous     bool        `json:"isAnomalous"`
	AvgLatencyMS    *float64    `json:"averageResponseTime"`
	StddevLatencyMS *float64    `json:"standardDeviation"`
	PacketLoss      *float64    `json:"packetLoss,omitempty"`
	TLS             *TLSInfo    `json:"sslInfo,omitempty"`
	Domain          *DomainInfo `json:"domainInfo,omitempty"`
	DNS             *DNSInfo    `json:"dnsInfo,omitempty"`
	IP              *IPInfo     `json:"ipInfo,omitempty"`
	LastCheck       time.Time   `json:"lastCheck"`
}
