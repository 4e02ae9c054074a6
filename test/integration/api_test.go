// Package integration verifies the HTTP API contract against a running
// server: status codes, validation failures, and bulk upload outcomes.
// Tests skip when the server is unreachable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func serverURL() string {
	if v := os.Getenv("INTEGRATION_SERVER_URL"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func requireServer(t *testing.T) (*http.Client, string) {
	t.Helper()
	base := serverURL()
	client := &http.Client{Timeout: 10 * time.Second}
	if _, err := client.Get(base + "/health/live"); err != nil {
		t.Skipf("server unavailable: %v", err)
	}
	return client, base
}

func TestSearchValidation(t *testing.T) {
	client, base := requireServer(t)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"missing query", "/api/v1/search", http.StatusBadRequest},
		{"negative limit", "/api/v1/search?q=palace&limit=-1", http.StatusBadRequest},
		{"bad class", "/api/v1/search?q=palace&class=abc", http.StatusBadRequest},
		{"valid query", "/api/v1/search?q=palace", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := client.Get(base + tc.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestHotelValidation(t *testing.T) {
	client, base := requireServer(t)

	cases := []struct {
		name    string
		payload string
		want    int
	}{
		{"empty body", `{}`, http.StatusBadRequest},
		{"missing locality", `{"name":"X","region_id":"r","region":"R","street-address":"S"}`, http.StatusBadRequest},
		{"rating out of range", `{"name":"X","region_id":"r","region":"R","street-address":"S","locality":"L","overall":9}`, http.StatusBadRequest},
		{"malformed json", `{broken`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := client.Post(base+"/api/v1/hotels", "application/json", strings.NewReader(tc.payload))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestReviewAgainstMissingHotel(t *testing.T) {
	client, base := requireServer(t)

	payload := `{"hotel_id":999999999,"title":"Ghost","text":"Review of a hotel that does not exist"}`
	resp, err := client.Post(base+"/api/v1/reviews", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHotelUploadOutcome(t *testing.T) {
	client, base := requireServer(t)

	unique := fmt.Sprintf("integr%d", time.Now().UnixNano())
	csvBody := "name,region_id,region,street-address,locality\n" +
		fmt.Sprintf("%s Hotel,r1,Integration Region,1 Test Street,Testville\n", unique) +
		",r1,Integration Region,2 Test Street,Testville\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "hotels.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(csvBody)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := client.Post(base+"/api/v1/hotels/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var outcome struct {
		Accepted int      `json:"accepted"`
		Rejected int      `json:"rejected"`
		Errors   []string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		t.Fatalf("decoding outcome: %v", err)
	}
	if outcome.Accepted != 1 || outcome.Rejected != 1 {
		t.Errorf("expected 1 accepted / 1 rejected, got %d / %d (%v)",
			outcome.Accepted, outcome.Rejected, outcome.Errors)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	client, base := requireServer(t)

	req, err := http.NewRequest(http.MethodGet, base+"/health/live", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Request-ID", "integration-test-id")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "integration-test-id" {
		t.Errorf("expected request id echoed, got %q", got)
	}
}
