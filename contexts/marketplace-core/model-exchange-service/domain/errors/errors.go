package errors

import "errors"

var (
	ErrInvalidInput                  = errors.New("marketplace input is invalid")
	ErrFieldTooLong                  = errors.New("field exceeds maximum length")
	ErrMarketplaceNotInitialized     = errors.New("marketplace is not initialized")
	ErrMarketplaceAlreadyInitialized = errors.New("marketplace is already initialized")
	ErrFeeBpsTooHigh                 = errors.New("fee basis points exceed 10000")

	ErrAssetNotFound   = errors.New("asset not found")
	ErrAssetInactive   = errors.New("asset is not active")
	ErrNotAssetCreator = errors.New("caller is not the asset creator")

	ErrMissingDuration      = errors.New("subscription purchase requires duration_days")
	ErrAmountOverflow       = errors.New("amount arithmetic overflows")
	ErrDuplicateEntitlement = errors.New("entitlement already exists for user and asset")

	ErrEntitlementNotFound  = errors.New("entitlement not found")
	ErrEntitlementInactive  = errors.New("entitlement is not active")
	ErrEntitlementExpired   = errors.New("entitlement has expired")
	ErrWrongEntitlementKind = errors.New("entitlement kind does not allow this operation")
	ErrDuplicateUsage       = errors.New("usage hash already recorded for user and asset")

	ErrLedgerRejected = errors.New("ledger rejected transfer")

	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
