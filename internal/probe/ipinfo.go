package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"sitewatch/internal/domain"
)

// geoEndpoint is the free ip-api.com JSON endpoint (no key, http only on
// the free tier).
var geoEndpoint = "http://ip-api.com/json/%s"

var geoClient = &http.Client{Timeout: 10 * time.Second}

type geoResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
}

// CheckIP enriches an ip target with geolocation and a best-effort reverse
// DNS name. The returned IPInfo always carries the raw IP; Error is set
// when the geolocation call itself failed.
func CheckIP(ctx context.Context, ip string) *domain.IPInfo {
	info := &domain.IPInfo{IP: ip, LastCheck: time.Now().UTC()}

	geo, err := lookupGeo(ctx, ip)
	if err != nil {
		info.Error = err.Error()
	} else {
		info.Country = geo.Country
		info.CountryCode = geo.CountryCode
		info.Region = geo.Region
		info.RegionName = geo.RegionName
		info.City = geo.City
		info.Zip = geo.Zip
		info.Lat = geo.Lat
		info.Lon = geo.Lon
		info.Timezone = geo.Timezone
		info.ISP = geo.ISP
		info.Org = geo.Org
		info.AS = geo.AS
	}

	// Reverse DNS is best-effort; plenty of addresses have no PTR.
	if names, err := net.DefaultResolver.LookupAddr(ctx, ip); err == nil && len(names) > 0 {
		info.ReverseDNS = strings.TrimSuffix(names[0], ".")
	}
	return info
}

func lookupGeo(ctx context.Context, ip string) (*geoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(geoEndpoint, ip), nil)
	if err != nil {
		return nil, err
	}
	resp, err := geoClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var geo geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return nil, err
	}
	if geo.Status == "fail" {
		msg := geo.Message
		if msg == "" {
			msg = "geolocation lookup failed"
		}
		return nil, errors.New(msg)
	}
	return &geo, nil
}
