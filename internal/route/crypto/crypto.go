// Package crypto defines routes for the asset catalog and trading.
package crypto

import (
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/dense-analysis/walletledger/internal/ledger"
	"github.com/dense-analysis/walletledger/internal/model"
	"github.com/dense-analysis/walletledger/internal/route/util"
	"github.com/dense-analysis/walletledger/pkg/lax"
)

type assetData struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type holdingData struct {
	AssetID  string          `json:"assetId"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
}

type tradeData struct {
	Account  string          `json:"account"`
	Quantity decimal.Decimal `json:"quantity"`
}

func makeHolding(holding model.Holding) holdingData {
	return holdingData{
		AssetID:  holding.AssetID,
		Name:     holding.Name,
		Symbol:   holding.Symbol,
		Quantity: holding.Quantity,
		Price:    holding.Price,
		Value:    holding.Quantity.Mul(holding.Price),
	}
}

type trade func(service *ledger.Service, request *lax.Request, body tradeData) ledger.Result

func tradeView(service *ledger.Service, run trade) lax.View {
	return lax.View{
		Post: func(request *lax.Request) any {
			var body tradeData

			if err := request.JSON(&body); err != nil {
				return util.RespondValidationError("invalid trade: " + err.Error())
			}

			return util.RespondResult(run(service, request, body))
		},
	}
}

// Register adds the catalog and trading routes to a router.
func Register(router *mux.Router, service *ledger.Service) {
	router.HandleFunc("/catalog", lax.Wrap(lax.View{
		Get: func(request *lax.Request) any {
			assets := service.Catalog.CurrentAssets().All()
			data := make([]assetData, 0, len(assets))

			for _, asset := range assets {
				data = append(data, assetData(asset))
			}

			return data
		},
	}))

	router.HandleFunc("/holdings", lax.Wrap(lax.View{
		Get: func(request *lax.Request) any {
			holdings := service.Assets.CurrentHoldings().All()

			if request.URL.Query().Get("owned") == "true" {
				holdings = service.Assets.OwnedHoldings()
			}

			data := make([]holdingData, 0, len(holdings))

			for _, holding := range holdings {
				data = append(data, makeHolding(holding))
			}

			return data
		},
	}))

	router.HandleFunc("/crypto/{assetId}/buy", lax.Wrap(tradeView(
		service,
		func(service *ledger.Service, request *lax.Request, body tradeData) ledger.Result {
			assetID := mux.Vars(request.Request)["assetId"]

			return service.Assets.Buy(request.Context(), body.Account, assetID, body.Quantity)
		},
	)))

	router.HandleFunc("/crypto/{assetId}/sell", lax.Wrap(tradeView(
		service,
		func(service *ledger.Service, request *lax.Request, body tradeData) ledger.Result {
			assetID := mux.Vars(request.Request)["assetId"]

			return service.Assets.Sell(request.Context(), body.Account, assetID, body.Quantity)
		},
	)))
}
