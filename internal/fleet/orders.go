package fleet

import (
	"context"
	"net/http"
	"time"

	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

// DateRange bounds a platform query.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) query() rangeQuery {
	return rangeQuery{
		From: r.From.Format(time.RFC3339),
		To:   r.To.Format(time.RFC3339),
	}
}

type rangeQuery struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type idQuery struct {
	ID string `json:"id"`
}

type ordersRequest struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
	Query  struct {
		Park struct {
			ID            string   `json:"id"`
			Car           *idQuery `json:"car,omitempty"`
			DriverProfile idQuery  `json:"driver_profile"`
			Order         struct {
				BookedAt rangeQuery `json:"booked_at"`
				Statuses []string   `json:"statuses"`
			} `json:"order"`
		} `json:"park"`
	} `json:"query"`
}

type ordersResponse struct {
	Orders []domain.Order `json:"orders"`
	Cursor string         `json:"cursor"`
}

// Orders pages through the driver's completed rides for the period. On a
// walk failure the orders collected so far are returned with the error.
func (c *Client) Orders(ctx context.Context, driverID, carID string, period DateRange) ([]domain.Order, error) {
	req := ordersRequest{Limit: ordersPageLimit}
	req.Query.Park.ID = c.Park.ParkID
	if carID != "" {
		req.Query.Park.Car = &idQuery{ID: carID}
	}
	req.Query.Park.DriverProfile = idQuery{ID: driverID}
	req.Query.Park.Order.BookedAt = period.query()
	req.Query.Park.Order.Statuses = []string{"complete"}

	return FetchAll(ctx, func(ctx context.Context, cursor string) (Page[domain.Order], error) {
		req.Cursor = cursor
		var resp ordersResponse
		if err := c.do(ctx, http.MethodPost, "/v1/parks/orders/list", c.orderHeaders(), &req, &resp); err != nil {
			return Page[domain.Order]{}, err
		}
		return Page[domain.Order]{Items: resp.Orders, Cursor: resp.Cursor}, nil
	})
}

type transactionsRequest struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
	Query  struct {
		Park struct {
			ID            string  `json:"id"`
			DriverProfile idQuery `json:"driver_profile"`
			Transaction   struct {
				CategoryIDs []string   `json:"category_ids"`
				EventAt     rangeQuery `json:"event_at"`
			} `json:"transaction"`
		} `json:"park"`
	} `json:"query"`
}

type transactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Cursor       string               `json:"cursor"`
}

// Transactions pages through the driver's financial ledger entries for the
// period, pre-filtered to the given categories. The filter is advisory; the
// caller still classifies every returned entry.
func (c *Client) Transactions(ctx context.Context, driverID string, categories []string, period DateRange) ([]domain.Transaction, error) {
	req := transactionsRequest{Limit: transactionsPageLimit}
	req.Query.Park.ID = c.Park.ParkID
	req.Query.Park.DriverProfile = idQuery{ID: driverID}
	req.Query.Park.Transaction.CategoryIDs = categories
	req.Query.Park.Transaction.EventAt = period.query()

	return FetchAll(ctx, func(ctx context.Context, cursor string) (Page[domain.Transaction], error) {
		req.Cursor = cursor
		var resp transactionsResponse
		if err := c.do(ctx, http.MethodPost, "/v2/parks/driver-profiles/transactions/list", c.transactionHeaders(), &req, &resp); err != nil {
			return Page[domain.Transaction]{}, err
		}
		return Page[domain.Transaction]{Items: resp.Transactions, Cursor: resp.Cursor}, nil
	})
}
