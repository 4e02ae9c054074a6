// Package e2e contains end-to-end tests that exercise a running server over
// HTTP: document writes, synchronous or Kafka-backed indexing, and search.
//
// Prerequisites: a server started with `go run ./cmd/server`. When Kafka is
// enabled, an indexworker must be running too.
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func serverURL() string {
	if v := os.Getenv("E2E_SERVER_URL"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func TestServerHealth(t *testing.T) {
	base := serverURL()
	client := &http.Client{Timeout: 5 * time.Second}

	for _, path := range []string{"/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			resp, err := client.Get(base + path)
			if err != nil {
				t.Skipf("server unavailable: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestWriteAndSearch exercises the full document lifecycle: create a hotel,
// attach a review, wait for indexing, search both collections.
func TestWriteAndSearch(t *testing.T) {
	base := serverURL()
	client := &http.Client{Timeout: 10 * time.Second}

	if _, err := client.Get(base + "/health/live"); err != nil {
		t.Skipf("server unavailable: %v", err)
	}

	// 1. Create a hotel with a unique name token.
	uniqueWord := fmt.Sprintf("e2etest%d", time.Now().UnixNano())
	hotelPayload := fmt.Sprintf(`{"name":"%s Hotel","region_id":"e2e","region":"E2E Region","street-address":"1 Test Street","locality":"Testville"}`, uniqueWord)

	resp, err := client.Post(base+"/api/v1/hotels", "application/json", strings.NewReader(hotelPayload))
	if err != nil {
		t.Fatalf("hotel create failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var hotel struct {
		HotelID int `json:"hotel_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hotel); err != nil {
		t.Fatalf("decoding hotel: %v", err)
	}

	// 2. Attach a review carrying the same unique token.
	reviewPayload := fmt.Sprintf(`{"hotel_id":%d,"title":"Review of %s","text":"The %s stay was wonderful"}`, hotel.HotelID, uniqueWord, uniqueWord)
	resp2, err := client.Post(base+"/api/v1/reviews", "application/json", strings.NewReader(reviewPayload))
	if err != nil {
		t.Fatalf("review create failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp2.StatusCode)
	}

	// 3. Search both collections, retrying while async indexing catches up.
	for _, target := range []string{"hotels", "reviews"} {
		t.Run("search "+target, func(t *testing.T) {
			deadline := time.Now().Add(30 * time.Second)
			for {
				count, err := searchCount(client, base, uniqueWord, target)
				if err == nil && count >= 1 {
					return
				}
				if time.Now().After(deadline) {
					t.Fatalf("no %s hit for %q before deadline (last err: %v)", target, uniqueWord, err)
				}
				time.Sleep(time.Second)
			}
		})
	}
}

func searchCount(client *http.Client, base, query, target string) (int, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/v1/search?q=%s&target=%s", base, query, target))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Count, nil
}
