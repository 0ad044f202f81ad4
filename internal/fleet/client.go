// Package fleet is the partner mobility platform API client: driver
// profiles, supply hours, and the cursor-paginated order and transaction
// endpoints.
package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NikitaKurabtsev/taxi-reports/internal/config"
	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_3) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/35.0.1916.47 Safari/537.36"

const (
	ordersPageLimit       = 500
	transactionsPageLimit = 1000
)

// APIError wraps non-2xx platform responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform api error: status=%d body=%s", e.StatusCode, e.Body)
}

// MissingFieldError marks an expected response field that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("platform response missing field %s", e.Field)
}

// TransportError marks a request that exhausted its retries without ever
// getting a response from the platform. Unlike APIError or a decode
// failure, the platform said nothing, so partial results stay trustworthy.
type TransportError struct {
	Method   string
	Path     string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s failed after %d attempts: %v", e.Method, e.Path, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the platform API on behalf of one park.
type Client struct {
	BaseURL    string
	Park       config.Park
	HTTPClient *http.Client

	// MaxAttempts and Backoff bound the transport-level retry loop.
	MaxAttempts int
	Backoff     time.Duration
}

// New creates a client for one park with sane defaults.
func New(baseURL string, park config.Park) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Park:        park,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
	}
}

// The platform wants different header sets per endpoint family.

func (c *Client) profileHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept-Language", "ru")
	h.Set("X-Park-ID", c.Park.ParkID)
	h.Set("X-Client-ID", c.Park.ClientID)
	h.Set("X-API-Key", c.Park.APIKey)
	return h
}

func (c *Client) orderHeaders() http.Header {
	h := http.Header{}
	h.Set("X-Client-ID", c.Park.ClientID)
	h.Set("X-API-Key", c.Park.APIKey)
	return h
}

func (c *Client) transactionHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept-Language", "ru")
	h.Set("X-Client-ID", c.Park.ClientID)
	h.Set("X-API-Key", c.Park.APIKey)
	return h
}

type profileResponse struct {
	Person *struct {
		FullName *struct {
			LastName   string `json:"last_name"`
			FirstName  string `json:"first_name"`
			MiddleName string `json:"middle_name"`
		} `json:"full_name"`
	} `json:"person"`
	CarID string `json:"car_id"`
}

// DriverProfile fetches the platform-side identity for a driver.
func (c *Client) DriverProfile(ctx context.Context, driverID string) (domain.DriverProfile, error) {
	q := url.Values{"contractor_profile_id": {driverID}}
	var resp profileResponse
	if err := c.do(ctx, http.MethodGet, "/v2/parks/contractors/driver-profile?"+q.Encode(), c.profileHeaders(), nil, &resp); err != nil {
		return domain.DriverProfile{}, err
	}
	if resp.Person == nil || resp.Person.FullName == nil {
		return domain.DriverProfile{}, &MissingFieldError{Field: "person.full_name"}
	}
	return domain.DriverProfile{
		LastName:   resp.Person.FullName.LastName,
		FirstName:  resp.Person.FullName.FirstName,
		MiddleName: resp.Person.FullName.MiddleName,
		CarID:      resp.CarID,
	}, nil
}

type supplyHoursResponse struct {
	SupplyDurationSeconds *int64 `json:"supply_duration_seconds"`
}

// SupplyHours returns the driver's online duration in seconds for the
// period. An absent field counts as zero activity, not an error.
func (c *Client) SupplyHours(ctx context.Context, driverID string, from, to time.Time) (int64, error) {
	q := url.Values{
		"contractor_profile_id": {driverID},
		"period_from":           {from.Format(time.RFC3339)},
		"period_to":             {to.Format(time.RFC3339)},
	}
	var resp supplyHoursResponse
	if err := c.do(ctx, http.MethodGet, "/v2/parks/contractors/supply-hours?"+q.Encode(), c.profileHeaders(), nil, &resp); err != nil {
		return 0, err
	}
	if resp.SupplyDurationSeconds == nil {
		return 0, nil
	}
	return *resp.SupplyDurationSeconds, nil
}

// do issues one request with bounded retries on transport failures.
// HTTP-level errors are not retried; the platform's non-2xx responses are
// deterministic.
func (c *Client) do(ctx context.Context, method, path string, headers http.Header, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.Backoff * time.Duration(attempt)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(data, out)
	}
	return &TransportError{Method: method, Path: path, Attempts: attempts, Err: lastErr}
}
