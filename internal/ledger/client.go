// Package ledger fetches the driver roster from the internal 1C ledger API.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

// requiredColumns must be present in the ledger dataset. Their absence is
// fatal for the run: there is nothing to filter.
var requiredColumns = []string{"DefaultID", "Status", "DismissalDate", "CarDepartment"}

// SchemaError reports required columns missing from the ledger response.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("ledger response missing required columns: %s", strings.Join(e.Missing, ", "))
}

// APIError wraps non-2xx ledger responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client talks to the ledger API with basic auth.
type Client struct {
	BaseURL    string
	Login      string
	Password   string
	HTTPClient *http.Client
}

// New creates a client with sane defaults.
func New(baseURL, login, password string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Login:      login,
		Password:   password,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// FetchDrivers reads the full roster dataset once per run.
func (c *Client) FetchDrivers(ctx context.Context) ([]domain.DriverRecord, error) {
	body, err := json.Marshal(map[string]any{"DetailBalance": false})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/Driver/v1/Get", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Login, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch drivers: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drivers response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return decodeDrivers(data)
}

// decodeDrivers validates the dataset shape at the boundary before mapping
// it onto typed records.
func decodeDrivers(data []byte) ([]domain.DriverRecord, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode drivers response: %w", err)
	}
	if len(raw) > 0 {
		if missing := missingColumns(raw); len(missing) > 0 {
			return nil, &SchemaError{Missing: missing}
		}
	}
	var records []domain.DriverRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode driver records: %w", err)
	}
	return records, nil
}

// missingColumns lists required columns absent from every record.
func missingColumns(raw []map[string]json.RawMessage) []string {
	var missing []string
	for _, col := range requiredColumns {
		found := false
		for _, rec := range raw {
			if _, ok := rec[col]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return missing
}
