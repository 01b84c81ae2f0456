package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// IPAPIComBaseURL is the default ip-api.com endpoint. The free tier is
// HTTP only.
const IPAPIComBaseURL = "http://ip-api.com"

const ipapiComStatusFail = "fail"

type ipapiComResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

// IPAPICom looks addresses up with ip-api.com: GET <base>/json/<ip>.
// Failures are signalled in the body by "status": "fail" with a "message".
type IPAPICom struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewIPAPICom creates an ip-api.com provider. An empty baseURL selects
// IPAPIComBaseURL.
func NewIPAPICom(client *http.Client, baseURL, userAgent string) *IPAPICom {
	if baseURL == "" {
		baseURL = IPAPIComBaseURL
	}
	return &IPAPICom{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Name identifies the provider in logs and metrics.
func (p *IPAPICom) Name() string { return "ipapicom" }

// Lookup queries ip-api.com for ip.
func (p *IPAPICom) Lookup(ctx context.Context, ip string) (Place, error) {
	var resp ipapiComResponse
	endpoint := p.baseURL + "/json/" + url.PathEscape(ip) + "?fields=status,message,country,regionName,city"
	if err := getJSON(ctx, p.client, endpoint, p.userAgent, &resp); err != nil {
		return Place{}, err
	}

	if strings.EqualFold(resp.Status, ipapiComStatusFail) {
		return Place{}, fmt.Errorf("%w: %s", ErrProviderFailure, resp.Message)
	}

	return Place{
		City:    resp.City,
		Region:  resp.RegionName,
		Country: resp.Country,
	}, nil
}
