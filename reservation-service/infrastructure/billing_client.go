package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/driveflow/reservation-system/reservation-service/saga"
	"github.com/driveflow/reservation-system/shared/models"
	"github.com/pkg/errors"
)

var _ saga.BillingStatusClient = (*HTTPBillingStatusClient)(nil)

// HTTPBillingStatusClient queries the billing manager's read-only status
// endpoint for a reservation's charge state.
type HTTPBillingStatusClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBillingStatusClient creates a client against the billing manager's
// base URL.
func NewHTTPBillingStatusClient(baseURL string, timeout time.Duration) *HTTPBillingStatusClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBillingStatusClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type billingStatusResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

// ReservationStatus returns the billing status string for a reservation.
func (c *HTTPBillingStatusClient) ReservationStatus(ctx context.Context, reservationID models.ID) (string, error) {
	url := fmt.Sprintf("%s/billing-status/%s", c.baseURL, reservationID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build billing status request")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to query billing status")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("billing status query returned %d", res.StatusCode)
	}

	var body billingStatusResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "failed to decode billing status response")
	}

	return body.Status, nil
}
