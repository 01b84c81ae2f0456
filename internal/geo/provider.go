package geo

import (
	"fmt"
	"net/http"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderIPAPI       = "ipapi"
	ProviderIPAPICom    = "ipapicom"
	ProviderIP2Location = "ip2location"
)

// Config selects and tunes the geolocation provider.
type Config struct {
	Provider        string        `env:"GEO_PROVIDER" envDefault:"ipapi"`
	BaseURL         string        `env:"GEO_BASE_URL"`
	Timeout         time.Duration `env:"GEO_TIMEOUT" envDefault:"3s"`
	DefaultLocation string        `env:"GEO_DEFAULT_LOCATION" envDefault:"Unknown location"`
	ClientID        string        `env:"GEO_CLIENT_ID"`
	IP2LocationDB   string        `env:"GEO_IP2LOCATION_DB" envDefault:"data/IP2LOCATION-LITE-DB3.BIN"`
}

// NewProvider builds the provider named by cfg.Provider. HTTP providers share
// client. The returned provider may implement io.Closer.
func NewProvider(cfg Config, client *http.Client) (Provider, error) {
	switch cfg.Provider {
	case ProviderIPAPI, "":
		return NewIPAPI(client, cfg.BaseURL, cfg.ClientID), nil
	case ProviderIPAPICom:
		return NewIPAPICom(client, cfg.BaseURL, cfg.ClientID), nil
	case ProviderIP2Location:
		p, err := OpenIP2Location(cfg.IP2LocationDB)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown geolocation provider %q", cfg.Provider)
	}
}
