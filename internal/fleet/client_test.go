package fleet_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NikitaKurabtsev/taxi-reports/internal/config"
	"github.com/NikitaKurabtsev/taxi-reports/internal/fleet"
)

var testPark = config.Park{ParkID: "park-1", ClientID: "client-1", APIKey: "key-1"}

func testPeriod(t *testing.T) fleet.DateRange {
	t.Helper()
	from, _ := time.Parse(time.RFC3339, "2024-06-01T00:00:00Z")
	to, _ := time.Parse(time.RFC3339, "2024-06-08T00:00:00Z")
	return fleet.DateRange{From: from, To: to}
}

func newClient(srv *httptest.Server) *fleet.Client {
	c := fleet.New(srv.URL, testPark)
	c.Backoff = time.Millisecond
	return c
}

func TestDriverProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/parks/contractors/driver-profile" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("contractor_profile_id"); got != "d1" {
			t.Errorf("unexpected contractor id %q", got)
		}
		if r.Header.Get("X-Park-ID") != "park-1" || r.Header.Get("X-API-Key") != "key-1" {
			t.Errorf("missing park headers")
		}
		w.Write([]byte(`{"person":{"full_name":{"last_name":"Иванов","first_name":"Иван"}},"car_id":"car-9"}`))
	}))
	defer srv.Close()

	p, err := newClient(srv).DriverProfile(context.Background(), "d1")
	if err != nil {
		t.Fatalf("driver profile: %v", err)
	}
	if p.FullName() != "Иванов Иван" || p.CarID != "car-9" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestDriverProfileMissingPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"car_id":"car-9"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv).DriverProfile(context.Background(), "d1")
	var missing *fleet.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
}

func TestSupplyHoursAbsentFieldIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sec, err := newClient(srv).SupplyHours(context.Background(), "d1", testPeriod(t).From, testPeriod(t).To)
	if err != nil {
		t.Fatalf("supply hours: %v", err)
	}
	if sec != 0 {
		t.Fatalf("expected 0 seconds, got %d", sec)
	}
}

func TestOrdersPagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/parks/orders/list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Park-ID") != "" {
			t.Errorf("orders endpoint must not carry X-Park-ID header")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		calls++
		switch calls {
		case 1:
			if _, ok := body["cursor"]; ok {
				t.Errorf("first request carries a cursor")
			}
			w.Write([]byte(`{"orders":[{"id":"o1","status":"complete","payment_method":"cash","price":"100.0"}],"cursor":"page-2"}`))
		case 2:
			if body["cursor"] != "page-2" {
				t.Errorf("expected cursor page-2, got %v", body["cursor"])
			}
			w.Write([]byte(`{"orders":[{"id":"o2","status":"complete","payment_method":"cashless","price":"50.0"}]}`))
		default:
			t.Errorf("unexpected extra call %d", calls)
		}
	}))
	defer srv.Close()

	orders, err := newClient(srv).Orders(context.Background(), "d1", "car-9", testPeriod(t))
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(orders) != 2 || orders[0].ID != "o1" || orders[1].ID != "o2" {
		t.Fatalf("unexpected orders %+v", orders)
	}
	if !orders[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected price %s", orders[0].Price)
	}
}

func TestTransactionsPagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/parks/driver-profiles/transactions/list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		calls++
		if calls == 1 {
			w.Write([]byte(`{"transactions":[{"order_id":"o1","category_id":"partner_ride_fee","amount":"10.0"}],"cursor":"t2"}`))
			return
		}
		w.Write([]byte(`{"transactions":[{"order_id":"o2","category_id":"platform_ride_fee","amount":"5.0"}]}`))
	}))
	defer srv.Close()

	txs, err := newClient(srv).Transactions(context.Background(), "d1", []string{"partner_ride_fee"}, testPeriod(t))
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if calls != 2 || len(txs) != 2 {
		t.Fatalf("calls=%d txs=%d", calls, len(txs))
	}
	if txs[0].CategoryID != "partner_ride_fee" || !txs[1].Amount.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected transactions %+v", txs)
	}
}

func TestRetryRecoversFromTransportFailure(t *testing.T) {
	// First connection is dropped mid-response, second attempt succeeds.
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("hijacking not supported")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		w.Write([]byte(`{"supply_duration_seconds":3600}`))
	}))
	defer srv.Close()

	sec, err := newClient(srv).SupplyHours(context.Background(), "d1", testPeriod(t).From, testPeriod(t).To)
	if err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if sec != 3600 {
		t.Fatalf("expected 3600, got %d", sec)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryExhaustionReturnsError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		hj := w.(http.Hijacker)
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	defer srv.Close()

	_, err := newClient(srv).SupplyHours(context.Background(), "d1", testPeriod(t).From, testPeriod(t).To)
	var te *fleet.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError after exhausted retries, got %v", err)
	}
	if te.Attempts != 3 {
		t.Fatalf("expected 3 attempts in the error, got %d", te.Attempts)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestBadPayloadIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"supply_duration_seconds": not-json`))
	}))
	defer srv.Close()

	_, err := newClient(srv).SupplyHours(context.Background(), "d1", testPeriod(t).From, testPeriod(t).To)
	if err == nil {
		t.Fatal("expected decode error")
	}
	var te *fleet.TransportError
	if errors.As(err, &te) {
		t.Fatalf("decode failure must not look like a transport failure: %v", err)
	}
}

func TestHTTPErrorNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newClient(srv).DriverProfile(context.Background(), "d1")
	var apiErr *fleet.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", apiErr.StatusCode)
	}
	if attempts != 1 {
		t.Fatalf("HTTP errors must not be retried, got %d attempts", attempts)
	}
}

func TestOrdersPartialResultsOnWalkFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"orders":[{"id":"o1","status":"complete","payment_method":"cash","price":"10.0"}],"cursor":"p2"}`))
			return
		}
		hj := w.(http.Hijacker)
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	defer srv.Close()

	orders, err := newClient(srv).Orders(context.Background(), "d1", "", testPeriod(t))
	var te *fleet.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError from the walk, got %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "o1" {
		t.Fatalf("expected the first page to survive, got %+v", orders)
	}
}

func ExampleFetchAll() {
	pages := map[string]fleet.Page[string]{
		"":     {Items: []string{"a"}, Cursor: "next"},
		"next": {Items: []string{"b"}},
	}
	items, _ := fleet.FetchAll(context.Background(), func(ctx context.Context, cursor string) (fleet.Page[string], error) {
		return pages[cursor], nil
	})
	fmt.Println(items)
	// Output: [a b]
}
