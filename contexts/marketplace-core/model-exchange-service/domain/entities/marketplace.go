package entities

import (
	"strings"
	"time"

	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
)

// MaxFeeBps caps the protocol fee at 100%. Anything above would drive the
// creator amount negative during settlement.
const MaxFeeBps = 10_000

// MarketplaceConfig is the create-once singleton holding protocol identity
// and the dense asset-id counter.
type MarketplaceConfig struct {
	Authority  string
	Treasury   string
	FeeBps     uint32
	AssetCount uint64
	CreatedAt  time.Time
}

func NewMarketplaceConfig(
	authority string,
	treasury string,
	feeBps uint32,
	createdAt time.Time,
) (MarketplaceConfig, error) {
	if strings.TrimSpace(authority) == "" || strings.TrimSpace(treasury) == "" {
		return MarketplaceConfig{}, domainerrors.ErrInvalidInput
	}
	if feeBps > MaxFeeBps {
		return MarketplaceConfig{}, domainerrors.ErrFeeBpsTooHigh
	}

	return MarketplaceConfig{
		Authority:  strings.TrimSpace(authority),
		Treasury:   strings.TrimSpace(treasury),
		FeeBps:     feeBps,
		AssetCount: 0,
		CreatedAt:  createdAt.UTC(),
	}, nil
}
