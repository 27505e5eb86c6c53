package entities

import (
	"fmt"
	"strings"
	"time"

	domainerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
)

type PaymentKind string

const (
	PaymentKindNative PaymentKind = "native"
	PaymentKindToken  PaymentKind = "token"
)

func (k PaymentKind) Valid() bool {
	return k == PaymentKindNative || k == PaymentKindToken
}

const (
	MaxAssetNameLen        = 100
	MaxAssetDescriptionLen = 500
	MaxContentHashLen      = 64
	MaxStorageURILen       = 200
)

// Asset is a listed digital good. AssetID is the dense sequence number the
// repository assigns at registration from the marketplace counter.
type Asset struct {
	AssetID         uint64
	Creator         string
	Name            string
	Description     string
	ContentHash     string
	StorageURI      string
	SizeBytes       uint64
	InferencePrice  uint64
	DownloadPrice   uint64
	PaymentKind     PaymentKind
	TotalInferences uint64
	TotalDownloads  uint64
	TotalRevenue    uint64
	IsActive        bool
	CreatedAt       time.Time
}

func NewAsset(
	creator string,
	name string,
	description string,
	contentHash string,
	storageURI string,
	sizeBytes uint64,
	inferencePrice uint64,
	downloadPrice uint64,
	paymentKind PaymentKind,
	createdAt time.Time,
) (Asset, error) {
	creator = strings.TrimSpace(creator)
	name = strings.TrimSpace(name)
	if creator == "" || name == "" {
		return Asset{}, domainerrors.ErrInvalidInput
	}
	if !paymentKind.Valid() {
		return Asset{}, domainerrors.ErrInvalidInput
	}
	if len(name) > MaxAssetNameLen {
		return Asset{}, fieldTooLong("name", MaxAssetNameLen)
	}
	if len(description) > MaxAssetDescriptionLen {
		return Asset{}, fieldTooLong("description", MaxAssetDescriptionLen)
	}
	if len(contentHash) > MaxContentHashLen {
		return Asset{}, fieldTooLong("content_hash", MaxContentHashLen)
	}
	if len(storageURI) > MaxStorageURILen {
		return Asset{}, fieldTooLong("storage_uri", MaxStorageURILen)
	}

	return Asset{
		Creator:        creator,
		Name:           name,
		Description:    description,
		ContentHash:    contentHash,
		StorageURI:     storageURI,
		SizeBytes:      sizeBytes,
		InferencePrice: inferencePrice,
		DownloadPrice:  downloadPrice,
		PaymentKind:    paymentKind,
		IsActive:       true,
		CreatedAt:      createdAt.UTC(),
	}, nil
}

func (a Asset) IsPurchasable() bool {
	return a.IsActive
}

func (a Asset) OwnedBy(callerID string) bool {
	return a.Creator == strings.TrimSpace(callerID)
}

func fieldTooLong(field string, max int) error {
	return fmt.Errorf("%w: %s over %d characters", domainerrors.ErrFieldTooLong, field, max)
}
