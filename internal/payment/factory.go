package payment

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
)

// ConfigSource reads a guild's key/value configuration.
type ConfigSource interface {
	GetConfigMap(ctx context.Context, guildID string) (map[string]string, error)
}

// FactoryOptions points the factory at provider endpoints.
type FactoryOptions struct {
	MercadoPagoURL string
	AbacatePayURL  string
	Breaker        BreakerSettings
}

// Factory builds gateway clients from per-guild credentials. One client is
// cached per (guild, gateway) so its breaker persists across requests;
// changing the credentials replaces it.
type Factory struct {
	configs ConfigSource
	http    *http.Client
	opts    FactoryOptions

	mu    sync.Mutex
	cache map[string]cachedGateway
}

type cachedGateway struct {
	credentials string
	gateway     Gateway
}

func NewFactory(configs ConfigSource, httpClient *http.Client, opts FactoryOptions) *Factory {
	return &Factory{
		configs: configs,
		http:    httpClient,
		opts:    opts,
		cache:   make(map[string]cachedGateway),
	}
}

// Resolve returns the gateway for guildID. An empty name falls back to the
// guild's payment_gateway_default, then to the first gateway with credentials.
func (f *Factory) Resolve(ctx context.Context, guildID, name string) (Gateway, error) {
	cfg, err := f.configs.GetConfigMap(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment config: %w", err)
	}

	if name == "" {
		name = cfg[models.ConfigPaymentGatewayDefault]
	}
	if name == "" {
		for _, candidate := range Supported {
			if cfg[models.GatewayTokenKey(candidate)] != "" {
				name = candidate
				break
			}
		}
	}
	if name == "" {
		return nil, ErrGatewayNotConfigured
	}
	if !IsSupported(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, name)
	}

	token := cfg[models.GatewayTokenKey(name)]
	if token == "" {
		return nil, fmt.Errorf("%w: %s has no credentials", ErrGatewayNotConfigured, name)
	}
	secret := cfg[models.ConfigMercadoPagoWebhookSecret]

	key := guildID + "|" + name
	credentials := token + "|" + secret

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[key]; ok && cached.credentials == credentials {
		return cached.gateway, nil
	}

	var gw Gateway
	switch name {
	case MercadoPago:
		gw = NewMercadoPagoClient(f.opts.MercadoPagoURL, token, secret, f.http)
	case AbacatePay:
		gw = NewAbacatePayClient(f.opts.AbacatePayURL, token, f.http)
	}

	gw = withBreaker(gw, name+":"+guildID, f.opts.Breaker)
	f.cache[key] = cachedGateway{credentials: credentials, gateway: gw}
	return gw, nil
}
