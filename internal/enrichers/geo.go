package enrichers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "complaint-service/internal/common/errors"
	httpclient "complaint-service/internal/common/http"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
)

// DefaultGeoURL is the IP geolocation endpoint
const DefaultGeoURL = "https://suggestions.dadata.ru/suggestions/api/4_1/rs/iplocate/address"

const (
	LoopbackIP    = "127.0.0.1"
	GeoLocalhost  = "LOCALHOST"
	GeoUnknown    = "UNKNOWN"
	maxIPLength   = 15
	actionGeoByIP = "resolve_geo"
)

// GeoResult is always a complete pair: both fields set to real values,
// both LOCALHOST, or both UNKNOWN.
type GeoResult struct {
	Country string
	City    string
}

var (
	LocalhostLocation = GeoResult{Country: GeoLocalhost, City: GeoLocalhost}
	UnknownLocation   = GeoResult{Country: GeoUnknown, City: GeoUnknown}
)

// GeoConfig configures a GeoLookupClient
type GeoConfig struct {
	URL    string
	APIKey string
	// Language of returned place names; defaults to "ru"
	Language string
	Timeout  time.Duration
	Backoff  utils.LinearBackoff
}

// GeoLookupClient resolves IPv4 addresses to a country and city
type GeoLookupClient struct {
	config GeoConfig
	client *http.Client
	logger logging.Logger
}

type geoRequest struct {
	IP       string `json:"ip"`
	Language string `json:"language"`
}

type geoResponse struct {
	Location *struct {
		Data *struct {
			Country *string `json:"country"`
			City    *string `json:"city"`
		} `json:"data"`
	} `json:"location"`
}

func NewGeoLookupClient(config GeoConfig, client *http.Client, logger logging.Logger) *GeoLookupClient {
	if config.URL == "" {
		config.URL = DefaultGeoURL
	}
	if config.Language == "" {
		config.Language = "ru"
	}
	if client == nil {
		client = httpclient.NewHTTPClient()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &GeoLookupClient{config: config, client: client, logger: logger}
}

// ValidateIP accepts exactly four dot-separated decimal octets in [0,255],
// at most 15 characters in total.
func ValidateIP(ip string) error {
	if ip == "" {
		return apperrors.ValidationError("ip address is empty")
	}
	if len(ip) > maxIPLength {
		return apperrors.ValidationError("ip address is longer than 15 characters").WithContext("ip", ip)
	}

	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return apperrors.ValidationError("ip address must have 4 octets").WithContext("ip", ip)
	}
	for _, octet := range octets {
		if octet == "" || strings.TrimLeft(octet, "0123456789") != "" {
			return apperrors.ValidationError("ip address octet is not a decimal number").WithContext("ip", ip)
		}
		value, err := strconv.Atoi(octet)
		if err != nil || value > 255 {
			return apperrors.ValidationError("ip address octet is out of range").WithContext("ip", ip)
		}
	}
	return nil
}

// Resolve returns the location of ip. The only error it returns is a
// validation error for malformed input, raised before any network call.
func (g *GeoLookupClient) Resolve(ctx context.Context, ip string) (GeoResult, error) {
	if err := ValidateIP(ip); err != nil {
		return GeoResult{}, err
	}
	if ip == LoopbackIP {
		return LocalhostLocation, nil
	}

	ev := logging.NewEvent(g.logger, utils.GenerateRequestID(), actionGeoByIP)
	result, ok := runAttempts(ctx, g.config.Backoff, ev, func(ctx context.Context) (GeoResult, error) {
		return g.attempt(ctx, ip)
	})
	if !ok {
		return UnknownLocation, nil
	}
	return result, nil
}

func (g *GeoLookupClient) attempt(ctx context.Context, ip string) (GeoResult, error) {
	headers := map[string]string{
		"Authorization": "Token " + g.config.APIKey,
		"Accept":        "application/json",
	}

	resp, err := httpclient.PostJSON(ctx, g.client, g.config.URL, headers,
		geoRequest{IP: ip, Language: g.config.Language}, g.config.Timeout)
	if err != nil {
		return GeoResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return GeoResult{}, statusError(resp)
	}

	var body geoResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return GeoResult{}, err
	}
	if body.Location == nil || body.Location.Data == nil {
		return GeoResult{}, apperrors.TerminalError("geolocation response has no location", nil)
	}

	return GeoResult{
		Country: orUnknown(body.Location.Data.Country),
		City:    orUnknown(body.Location.Data.City),
	}, nil
}

func orUnknown(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return GeoUnknown
	}
	return *value
}
