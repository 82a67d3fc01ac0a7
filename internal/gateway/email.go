package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Template aliases known to the email provider.
const (
	TemplateDomainAdded = "domain-added"
	TemplateNewOffer    = "new-offer"
)

// EmailClient sends templated transactional email.
type EmailClient struct {
	http jsonClient
	from string
	ok   bool
}

// NewEmailClient builds a client for a Postmark compatible API.
func NewEmailClient(baseURL, apiKey, from string, timeout time.Duration) *EmailClient {
	return &EmailClient{
		http: newJSONClient(baseURL, timeout, map[string]string{"X-Postmark-Server-Token": apiKey}),
		from: from,
		ok:   baseURL != "" && apiKey != "",
	}
}

type templateEmail struct {
	From          string         `json:"From"`
	To            string         `json:"To"`
	TemplateAlias string         `json:"TemplateAlias"`
	TemplateModel map[string]any `json:"TemplateModel"`
}

// Send delivers template to a single recipient with the given variables.
func (c *EmailClient) Send(ctx context.Context, to, template string, vars map[string]any) error {
	if !c.ok {
		return ErrNotConfigured
	}
	msg := templateEmail{From: c.from, To: to, TemplateAlias: template, TemplateModel: vars}
	if err := c.http.do(ctx, http.MethodPost, "/email/withTemplate", msg, nil); err != nil {
		return errors.Wrapf(err, "send %s", template)
	}
	return nil
}
