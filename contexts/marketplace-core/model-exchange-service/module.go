package modelexchangeservice

import (
	"log/slog"

	httpadapter "modelmart/contexts/marketplace-core/model-exchange-service/adapters/http"
	"modelmart/contexts/marketplace-core/model-exchange-service/adapters/memory"
	"modelmart/contexts/marketplace-core/model-exchange-service/application"
	"modelmart/contexts/marketplace-core/model-exchange-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Marketplace                     ports.MarketplaceRepository
	Assets                          ports.AssetRepository
	Entitlements                    ports.EntitlementRepository
	Usage                           ports.UsageRepository
	Ledger                          ports.Ledger
	Outbox                          ports.OutboxWriter
	Clock                           ports.Clock
	IDGenerator                     ports.IDGenerator
	DisableMarketplaceEventEmission bool
	Logger                          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Marketplace:                     deps.Marketplace,
		Assets:                          deps.Assets,
		Entitlements:                    deps.Entitlements,
		Usage:                           deps.Usage,
		Ledger:                          deps.Ledger,
		Outbox:                          deps.Outbox,
		Clock:                           deps.Clock,
		IDGen:                           deps.IDGenerator,
		DisableMarketplaceEventEmission: deps.DisableMarketplaceEventEmission,
		Logger:                          deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Marketplace:  store,
		Assets:       store,
		Entitlements: store,
		Usage:        store,
		Ledger:       store,
		Outbox:       store,
		Clock:        store,
		IDGenerator:  store,
		Logger:       logger,
	})
	module.Store = store
	return module
}
