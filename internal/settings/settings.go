// Package settings loads the operator-managed settings table into a typed snapshot.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshop/internal/cache"
	"bookshop/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Setting keys read by the service. Other keys in the table are ignored.
const (
	KeyCarrierAPIKey         = "nova_poshta_api_key"
	KeySenderRef             = "nova_poshta_sender_ref"
	KeySenderCityRef         = "nova_poshta_sender_city_ref"
	KeySenderWarehouseRef    = "nova_poshta_sender_warehouse_ref"
	KeySenderContactRef      = "nova_poshta_sender_contact_ref"
	KeySenderPhone           = "nova_poshta_sender_phone"
	KeyMinOrderAmount        = "min_order_amount"
	KeyFreeDeliveryThreshold = "free_delivery_threshold"
)

const cacheKey = "bookshop:settings"

// Sender identifies the shop as the shipping party.
type Sender struct {
	Ref          string
	CityRef      string
	WarehouseRef string
	ContactRef   string
	Phone        string
}

// Complete reports whether every sender reference is present.
func (s Sender) Complete() bool {
	return s.Ref != "" && s.CityRef != "" && s.WarehouseRef != "" && s.ContactRef != "" && s.Phone != ""
}

// Snapshot is the typed view of the settings table at one point in time.
type Snapshot struct {
	CarrierAPIKey string
	Sender        Sender
	// MinOrderAmount is nil when no minimum is configured.
	MinOrderAmount *decimal.Decimal
	// FreeDeliveryThreshold is nil when free delivery is not offered.
	FreeDeliveryThreshold *decimal.Decimal
}

// FreeDelivery reports whether an order total qualifies for free delivery.
func (s *Snapshot) FreeDelivery(total decimal.Decimal) bool {
	return s.FreeDeliveryThreshold != nil && total.GreaterThanOrEqual(*s.FreeDeliveryThreshold)
}

// Parse builds a snapshot from raw key/value pairs. Blank values count as unset,
// as do numbers that fail to parse or are negative.
func Parse(values map[string]string) *Snapshot {
	get := func(key string) string {
		return strings.TrimSpace(values[key])
	}

	return &Snapshot{
		CarrierAPIKey: get(KeyCarrierAPIKey),
		Sender: Sender{
			Ref:          get(KeySenderRef),
			CityRef:      get(KeySenderCityRef),
			WarehouseRef: get(KeySenderWarehouseRef),
			ContactRef:   get(KeySenderContactRef),
			Phone:        get(KeySenderPhone),
		},
		MinOrderAmount:        parseAmount(get(KeyMinOrderAmount)),
		FreeDeliveryThreshold: parseAmount(get(KeyFreeDeliveryThreshold)),
	}
}

func parseAmount(v string) *decimal.Decimal {
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

// Provider loads the current settings snapshot.
type Provider interface {
	Load(ctx context.Context) (*Snapshot, error)
}

type dbProvider struct {
	repo repository.SettingsRepository
}

// NewProvider creates a Provider that reads the settings table on every call.
func NewProvider(repo repository.SettingsRepository) Provider {
	return &dbProvider{repo: repo}
}

func (p *dbProvider) Load(ctx context.Context) (*Snapshot, error) {
	values, err := p.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return Parse(values), nil
}

type cachedProvider struct {
	repo   repository.SettingsRepository
	store  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProvider creates a Provider that keeps the raw settings in redis for
// ttl. Cache failures fall through to the database.
func NewCachedProvider(repo repository.SettingsRepository, store cache.Store, ttl time.Duration, logger zerolog.Logger) Provider {
	return &cachedProvider{
		repo:   repo,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

func (p *cachedProvider) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := p.store.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var values map[string]string
		if jsonErr := json.Unmarshal([]byte(raw), &values); jsonErr == nil {
			return Parse(values), nil
		}
		p.logger.Warn().Msg("discarding malformed cached settings")
	case !errors.Is(err, cache.ErrMiss):
		p.logger.Warn().Err(err).Msg("settings cache unavailable")
	}

	values, err := p.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if encoded, err := json.Marshal(values); err == nil {
		if err := p.store.Set(ctx, cacheKey, string(encoded), p.ttl); err != nil {
			p.logger.Warn().Err(err).Msg("failed to cache settings")
		}
	}

	return Parse(values), nil
}
