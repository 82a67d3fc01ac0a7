package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrDomainInUse is returned when the hosting platform refuses a domain
// because another project already holds it.
var ErrDomainInUse = errors.New("domain already in use by another project")

const codeDomainInUse = "domain_already_in_use"

// DomainConfig is the DNS configuration state reported by the platform.
type DomainConfig struct {
	Misconfigured bool `json:"misconfigured"`
}

// HostingClient talks to the hosting platform's project domain API using
// a bearer token.  All domains are attached to a single project.
type HostingClient struct {
	http      jsonClient
	projectID string
	teamID    string
}

// NewHostingClient builds a client for baseURL (e.g. https://api.vercel.com/v10).
func NewHostingClient(baseURL, token, projectID, teamID string, timeout time.Duration) *HostingClient {
	return &HostingClient{
		http:      newJSONClient(baseURL, timeout, map[string]string{"Authorization": "Bearer " + token}),
		projectID: projectID,
		teamID:    teamID,
	}
}

type addDomainRequest struct {
	Name               string `json:"name"`
	Redirect           string `json:"redirect,omitempty"`
	RedirectStatusCode int    `json:"redirectStatusCode,omitempty"`
}

// AddDomain attaches www.<name> as the primary host and then the apex name
// as a permanent redirect to it.  Both registrations must succeed; when the
// apex fails the www host is detached again.  A name already attached to
// this project counts as added.  It returns the project the domain was
// attached to.
func (c *HostingClient) AddDomain(ctx context.Context, name string) (string, error) {
	if c.projectID == "" {
		return "", ErrNotConfigured
	}
	www := "www." + name
	if err := c.addOne(ctx, addDomainRequest{Name: www}); err != nil {
		return "", err
	}
	apex := addDomainRequest{Name: name, Redirect: www, RedirectStatusCode: http.StatusPermanentRedirect}
	if err := c.addOne(ctx, apex); err != nil {
		c.detach(ctx, www)
		return "", err
	}
	return c.projectID, nil
}

func (c *HostingClient) addOne(ctx context.Context, req addDomainRequest) error {
	err := c.http.do(ctx, http.MethodPost, c.path("/domains"), req, nil)
	if err == nil {
		return nil
	}
	var se *StatusError
	if !errors.As(err, &se) {
		return errors.Wrapf(err, "add %s", req.Name)
	}
	switch {
	case se.Code == codeDomainInUse:
		return errors.Wrapf(ErrDomainInUse, "add %s", req.Name)
	case se.Status == http.StatusConflict:
		// Other conflicts are ambiguous: the name may already sit on this
		// project from an earlier attempt.
		attached, aerr := c.attached(ctx, req.Name)
		if aerr != nil {
			return errors.Wrapf(aerr, "add %s", req.Name)
		}
		if attached {
			return nil
		}
		return errors.Wrapf(ErrDomainInUse, "add %s", req.Name)
	}
	return errors.Wrapf(err, "add %s", req.Name)
}

// attached reports whether host is one of this project's domains.
func (c *HostingClient) attached(ctx context.Context, host string) (bool, error) {
	err := c.http.do(ctx, http.MethodGet, c.path("/domains/"+url.PathEscape(host)), nil, nil)
	switch {
	case err == nil:
		return true, nil
	case statusOf(err) == http.StatusNotFound:
		return false, nil
	default:
		return false, errors.Wrapf(err, "lookup %s", host)
	}
}

// detach removes host after a partial registration.  Failures are logged;
// the registration error is what the caller acts on.
func (c *HostingClient) detach(ctx context.Context, host string) {
	ctx = context.WithoutCancel(ctx)
	err := c.http.do(ctx, http.MethodDelete, c.path("/domains/"+url.PathEscape(host)), nil, nil)
	if err != nil && statusOf(err) != http.StatusNotFound {
		zerolog.Ctx(ctx).Error().Err(err).Str("host", host).
			Msg("partial hosting registration left behind")
	}
}

// RemoveDomain detaches both the www host and the apex name.  Names the
// platform does not know are ignored.
func (c *HostingClient) RemoveDomain(ctx context.Context, name string) error {
	if c.projectID == "" {
		return ErrNotConfigured
	}
	for _, host := range []string{"www." + name, name} {
		err := c.http.do(ctx, http.MethodDelete, c.path("/domains/"+url.PathEscape(host)), nil, nil)
		if err != nil && statusOf(err) != http.StatusNotFound {
			return errors.Wrapf(err, "remove %s", host)
		}
	}
	return nil
}

// Verify asks the platform to re-check DNS ownership of the domain.
func (c *HostingClient) Verify(ctx context.Context, name string) (bool, error) {
	if c.projectID == "" {
		return false, ErrNotConfigured
	}
	var out struct {
		Verified bool `json:"verified"`
	}
	if err := c.http.do(ctx, http.MethodPost, c.path("/domains/"+url.PathEscape(name)+"/verify"), nil, &out); err != nil {
		return false, errors.Wrapf(err, "verify %s", name)
	}
	return out.Verified, nil
}

// Config returns the DNS configuration state of the domain.
func (c *HostingClient) Config(ctx context.Context, name string) (DomainConfig, error) {
	var out DomainConfig
	p := "/domains/" + url.PathEscape(name) + "/config" + c.query()
	if err := c.http.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return DomainConfig{}, errors.Wrapf(err, "config %s", name)
	}
	return out, nil
}

func (c *HostingClient) path(suffix string) string {
	return "/projects/" + url.PathEscape(c.projectID) + suffix + c.query()
}

func (c *HostingClient) query() string {
	if c.teamID == "" {
		return ""
	}
	return "?teamId=" + url.QueryEscape(c.teamID)
}
