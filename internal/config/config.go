// Package config loads service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then the process environment. Later layers win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"solana-token-audit/internal/market"
	"solana-token-audit/internal/payment"
	"solana-token-audit/internal/solana"
)

// Replay store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Defaults.
const (
	DefaultRPCEndpoint     = "https://mainnet.helius-rpc.com"
	DefaultHTTPAddr        = ":8080"
	DefaultProviderTimeout = 8 * time.Second
	DefaultPaymentSOL      = "0.002"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the service configuration. Treat as immutable after Load.
type Config struct {
	HeliusAPIKey string
	RPCEndpoint  string

	GeckoBaseURL string
	GeckoNetwork string
	PriceBaseURL string

	TreasuryWallet  string
	PaymentSOL      decimal.Decimal
	PaymentRequired bool
	SimulateBypass  bool

	ProviderTimeout time.Duration

	ReplayStore string
	PostgresDSN string
	RedisURL    string
	ReplayTTL   time.Duration // 0 keeps signatures forever

	HTTPAddr string
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		RPCEndpoint:     DefaultRPCEndpoint,
		GeckoBaseURL:    market.DefaultGeckoBaseURL,
		GeckoNetwork:    market.DefaultNetwork,
		PriceBaseURL:    market.DefaultPriceBaseURL,
		PaymentSOL:      decimal.RequireFromString(DefaultPaymentSOL),
		SimulateBypass:  true,
		ProviderTimeout: DefaultProviderTimeout,
		ReplayStore:     StoreMemory,
		HTTPAddr:        DefaultHTTPAddr,
	}
}

// fileConfig mirrors Config in YAML form. Pointers distinguish unset keys.
type fileConfig struct {
	HeliusAPIKey    string `yaml:"helius_api_key"`
	RPCEndpoint     string `yaml:"rpc_endpoint"`
	GeckoBaseURL    string `yaml:"gecko_api_base"`
	GeckoNetwork    string `yaml:"gecko_network"`
	PriceBaseURL    string `yaml:"price_api_base"`
	TreasuryWallet  string `yaml:"treasury_wallet"`
	PaymentSOL      string `yaml:"payment_amount_sol"`
	PaymentRequired *bool  `yaml:"payment_required"`
	SimulateBypass  *bool  `yaml:"simulate_bypass"`
	ProviderTimeout string `yaml:"provider_timeout"`
	ReplayStore     string `yaml:"replay_store"`
	PostgresDSN     string `yaml:"postgres_dsn"`
	RedisURL        string `yaml:"redis_url"`
	ReplayTTL       string `yaml:"replay_ttl"`
	HTTPAddr        string `yaml:"http_addr"`
}

// Load builds a Config from defaults, the YAML file at path (optional),
// ./.env (if present) and the environment.
func Load(path string) (*Config, error) {
	return load(path, ".env", os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables already set in the environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.HeliusAPIKey, fc.HeliusAPIKey)
	setString(&c.RPCEndpoint, fc.RPCEndpoint)
	setString(&c.GeckoBaseURL, fc.GeckoBaseURL)
	setString(&c.GeckoNetwork, fc.GeckoNetwork)
	setString(&c.PriceBaseURL, fc.PriceBaseURL)
	setString(&c.TreasuryWallet, fc.TreasuryWallet)
	setString(&c.ReplayStore, fc.ReplayStore)
	setString(&c.PostgresDSN, fc.PostgresDSN)
	setString(&c.RedisURL, fc.RedisURL)
	setString(&c.HTTPAddr, fc.HTTPAddr)

	if fc.PaymentRequired != nil {
		c.PaymentRequired = *fc.PaymentRequired
	}
	if fc.SimulateBypass != nil {
		c.SimulateBypass = *fc.SimulateBypass
	}
	if err := setDecimal(&c.PaymentSOL, "payment_amount_sol", fc.PaymentSOL); err != nil {
		return err
	}
	if err := setDuration(&c.ProviderTimeout, "provider_timeout", fc.ProviderTimeout); err != nil {
		return err
	}
	return setDuration(&c.ReplayTTL, "replay_ttl", fc.ReplayTTL)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	setString(&c.HeliusAPIKey, get("HELIUS_API_KEY"))
	setString(&c.RPCEndpoint, get("SOLANA_RPC_ENDPOINT"))
	setString(&c.GeckoBaseURL, get("GECKO_API_BASE"))
	setString(&c.GeckoNetwork, get("GECKO_NETWORK"))
	setString(&c.PriceBaseURL, get("PRICE_API_BASE"))
	setString(&c.TreasuryWallet, get("TREASURY_WALLET"))
	setString(&c.ReplayStore, get("REPLAY_STORE"))
	setString(&c.PostgresDSN, get("POSTGRES_DSN"))
	setString(&c.RedisURL, get("REDIS_URL"))

	if port := get("PORT"); port != "" {
		c.HTTPAddr = ":" + port
	}
	setString(&c.HTTPAddr, get("HTTP_ADDR"))

	if err := setBool(&c.PaymentRequired, "PAYMENT_REQUIRED", get("PAYMENT_REQUIRED")); err != nil {
		return err
	}
	if err := setBool(&c.SimulateBypass, "SIMULATE_BYPASS", get("SIMULATE_BYPASS")); err != nil {
		return err
	}
	if err := setDecimal(&c.PaymentSOL, "PAYMENT_AMOUNT_SOL", get("PAYMENT_AMOUNT_SOL")); err != nil {
		return err
	}
	if err := setDuration(&c.ProviderTimeout, "PROVIDER_TIMEOUT", get("PROVIDER_TIMEOUT")); err != nil {
		return err
	}
	return setDuration(&c.ReplayTTL, "REPLAY_TTL", get("REPLAY_TTL"))
}

// RPCURL returns the JSON-RPC endpoint with the Helius API key attached.
// An endpoint that already carries api-key is returned unchanged.
func (c *Config) RPCURL() string {
	if c.HeliusAPIKey == "" {
		return c.RPCEndpoint
	}
	u, err := url.Parse(c.RPCEndpoint)
	if err != nil {
		return c.RPCEndpoint
	}
	q := u.Query()
	if q.Get("api-key") != "" {
		return c.RPCEndpoint
	}
	q.Set("api-key", c.HeliusAPIKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("%w: rpc endpoint is required", ErrInvalidConfig)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("%w: provider timeout must be positive", ErrInvalidConfig)
	}

	if c.PaymentRequired {
		if c.TreasuryWallet == "" {
			return fmt.Errorf("%w: TREASURY_WALLET is required when payment is required", ErrInvalidConfig)
		}
		if err := solana.ValidatePublicKey(c.TreasuryWallet); err != nil {
			return fmt.Errorf("%w: treasury wallet: %v", ErrInvalidConfig, err)
		}
		// At or below the dust tolerance, a zero-lamport transfer would pass.
		if !c.PaymentSOL.GreaterThan(payment.DefaultEpsilonSOL) {
			return fmt.Errorf("%w: payment amount must exceed %s SOL", ErrInvalidConfig, payment.DefaultEpsilonSOL)
		}
	}

	switch c.ReplayStore {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for the postgres replay store", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required for the redis replay store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown replay store %q", ErrInvalidConfig, c.ReplayStore)
	}

	if c.ReplayTTL < 0 {
		return fmt.Errorf("%w: replay ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.HeliusAPIKey == "" && c.RPCEndpoint == DefaultRPCEndpoint {
		warnings = append(warnings, "HELIUS_API_KEY is empty; provider calls will be rejected")
	}
	if c.TreasuryWallet != "" && !solana.IsOnCurve(c.TreasuryWallet) {
		warnings = append(warnings, "treasury wallet is not on the ed25519 curve (program-derived address?)")
	}
	if c.PaymentRequired && c.SimulateBypass {
		warnings = append(warnings, "SIMULATE bypass is enabled; addresses containing SIMULATE skip payment")
	}
	if c.ReplayStore == StoreMemory {
		warnings = append(warnings, "replay store is in memory; consumed signatures are lost on restart")
	}
	return warnings
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key, v string) error {
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = b
	return nil
}

func setDecimal(dst *decimal.Decimal, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = d
	return nil
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = d
	return nil
}
