package entities

import (
	"strings"
	"time"

	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
)

const MaxUsageHashLen = 64

// UsageEvent is an immutable record that one unit of inference access was
// consumed. The triple (User, AssetID, UsageHash) is its canonical address,
// which is what rejects replays of the same fingerprint.
type UsageEvent struct {
	User       string
	AssetID    uint64
	UsageHash  string
	RecordedAt time.Time
}

func NewUsageEvent(
	user string,
	assetID uint64,
	usageHash string,
	recordedAt time.Time,
) (UsageEvent, error) {
	user = strings.TrimSpace(user)
	usageHash = strings.TrimSpace(usageHash)
	if user == "" || usageHash == "" {
		return UsageEvent{}, domainerrors.ErrInvalidInput
	}
	if len(usageHash) > MaxUsageHashLen {
		return UsageEvent{}, fieldTooLong("usage_hash", MaxUsageHashLen)
	}

	return UsageEvent{
		User:       user,
		AssetID:    assetID,
		UsageHash:  usageHash,
		RecordedAt: recordedAt.UTC(),
	}, nil
}
