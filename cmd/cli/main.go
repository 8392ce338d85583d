package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter a site URL or IP address to monitor: ")
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if raw == "" {
		fmt.Println("Nothing entered.")
		return
	}

	kind := "url"
	if net.ParseIP(raw) != nil {
		kind = "ip"
	} else {
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			fmt.Println("Invalid URL.")
			return
		}
	}

	fmt.Print("Display name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		name = raw
	}

	body, _ := json.Marshal(map[string]string{
		"url":  raw,
		"type": kind,
		"name": name,
	})
	resp, err := http.Post(api+"/api/sites", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		fmt.Println("Added! Watch GET /api/sites or connect to /ws for live updates.")
	} else {
		fmt.Println("API returned status:", resp.Status)
	}
}
