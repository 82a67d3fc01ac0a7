package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// RegistrarClient registers domains bought through the service.
type RegistrarClient struct {
	http jsonClient
	ok   bool
}

// NewRegistrarClient builds a registrar client.  An empty baseURL yields a
// client whose calls fail with ErrNotConfigured.
func NewRegistrarClient(baseURL, apiKey string, timeout time.Duration) *RegistrarClient {
	return &RegistrarClient{
		http: newJSONClient(baseURL, timeout, map[string]string{"Authorization": "Bearer " + apiKey}),
		ok:   baseURL != "",
	}
}

type registerRequest struct {
	Domain       string `json:"domain"`
	ContactEmail string `json:"contact_email"`
}

// Register buys name on behalf of the customer reachable at contactEmail.
func (c *RegistrarClient) Register(ctx context.Context, name, contactEmail string) error {
	if !c.ok {
		return ErrNotConfigured
	}
	req := registerRequest{Domain: name, ContactEmail: contactEmail}
	if err := c.http.do(ctx, http.MethodPost, "/domains/register", req, nil); err != nil {
		return errors.Wrapf(err, "register %s", name)
	}
	return nil
}
