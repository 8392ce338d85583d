package domain

import "time"

type TargetID string

// Kind discriminates what a target is and therefore how it is probed.
type Kind string

const (
	KindURL Kind = "url"
	KindIP  Kind = "ip"
)

// Status is the last observed liveness of a target.
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusUnknown Status = "unknown"
	// StatusError marks a probe that itself blew up (not a target that
	// answered "down"); it only ever appears on a ProbeReport.
	StatusError Status = "error"
)

// NotificationPrefs declares where and when alerts for a target go.
type NotificationPrefs struct {
	Email        string `json:"email"`
	Downtime     bool   `json:"downtime"`
	TLSExpiry    bool   `json:"sslExpiry"`
	DomainExpiry bool   `json:"domainExpiry"`
}

// Target is a monitored endpoint. The fields from Status down are owned by
// the prober and overwritten on each sweep; the enrichment blobs are
// kind-specific (TLS/Domain/DNS for url, IP for ip) and nil when
// unavailable.
type Target struct {
	ID               TargetID          `json:"id"`
	Kind             Kind              `json:"type"`
	Address          string            `json:"url"`
	Name             string            `json:"name"`
	Category         string            `json:"category"`
	AnomalyThreshold int               `json:"anomalyThreshold"` // ms
	Notifications    NotificationPrefs `json:"notifications"`

	Status          Status      `json:"status"`
	LatencyMS       *float64    `json:"responseTime"`
	LastCheck       time.Time   `json:"lastCheck"`
	AvgLatencyMS    *float64    `json:"averageResponseTime"`
	StddevLatencyMS *float64    `json:"standardDeviation"`
	LastError       string      `json:"lastError,omitempty"`
	LastStatusCode  *int        `json:"lastStatusCode,omitempty"`
	TLS             *TLSInfo    `json:"sslInfo"`
	Domain          *DomainInfo `json:"domainInfo"`
	DNS             *DNSInfo    `json:"dnsInfo"`
	IP              *IPInfo     `json:"ipInfo"`

	CreatedAt time.Time `json:"created_at"`
}

// HistoryRecord is one immutable snapshot of one check. Created exactly
// once per completed probe, failed ones included.
type HistoryRecord struct {
	ID         int64     `json:"id,omitempty"`
	TargetID   TargetID  `json:"target_id"`
	Status     Status    `json:"status"`
	LatencyMS  *float64  `json:"responseTime"`
	StatusCode *int      `json:"statusCode"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TargetUpdate carries the probe-owned fields to persist after a check.
// A nil pointer means "leave the stored value alone". The enrichment blobs
// get explicit Set flags because a probe can legitimately write a nil blob
// (that enrichment failed this round).
type TargetUpdate struct {
	Status          *Status
	LatencyMS       *float64
	LastCheck       *time.Time
	AvgLatencyMS    *float64
	StddevLatencyMS *float64
	LastError       *string // pointer to "" clears a previous error
	LastStatusCode  *int

	TLS       *TLSInfo
	TLSSet    bool
	Domain    *DomainInfo
	DomainSet bool
	DNS       *DNSInfo
	DNSSet    bool
	IP        *IPInfo
	IPSet     bool
}
