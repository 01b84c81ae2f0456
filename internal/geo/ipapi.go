package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// IPAPIBaseURL is the default ipapi.co endpoint.
const IPAPIBaseURL = "https://ipapi.co"

type ipapiResponse struct {
	City        string `json:"city"`
	Region      string `json:"region"`
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// IPAPI looks addresses up with ipapi.co: GET <base>/<ip>/json/.
// Failures are signalled in the body by "error": true with a "reason".
type IPAPI struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewIPAPI creates an ipapi.co provider. An empty baseURL selects IPAPIBaseURL.
func NewIPAPI(client *http.Client, baseURL, userAgent string) *IPAPI {
	if baseURL == "" {
		baseURL = IPAPIBaseURL
	}
	return &IPAPI{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Name identifies the provider in logs and metrics.
func (p *IPAPI) Name() string { return "ipapi" }

// Lookup queries ipapi.co for ip.
func (p *IPAPI) Lookup(ctx context.Context, ip string) (Place, error) {
	var resp ipapiResponse
	endpoint := p.baseURL + "/" + url.PathEscape(ip) + "/json/"
	if err := getJSON(ctx, p.client, endpoint, p.userAgent, &resp); err != nil {
		return Place{}, err
	}

	if resp.Error {
		return Place{}, fmt.Errorf("%w: %s", ErrProviderFailure, resp.Reason)
	}

	return Place{
		City:    resp.City,
		Region:  resp.Region,
		Country: resp.CountryName,
	}, nil
}
