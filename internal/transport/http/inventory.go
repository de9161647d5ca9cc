package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shadowcc/keyshop/internal/domain"
)

// StockReader is the minimal interface needed for stock endpoints.
type StockReader interface {
	GetStock(ctx context.Context, product domain.ProductID) (int, error)
	GetAllStock(ctx context.Context) (map[domain.ProductID]int, error)
}

type stockResponse struct {
	ProductID domain.ProductID `json:"product_id"`
	Stock     int              `json:"stock"`
}

// HandleGetAllStock returns the stock count of every known product.
func HandleGetAllStock(svc StockReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stock, err := svc.GetAllStock(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stock)
	}
}

// HandleGetStock returns the stock of one product. Unknown products report 0.
func HandleGetStock(svc StockReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product := domain.ProductID(chi.URLParam(r, "productID"))
		stock, err := svc.GetStock(r.Context(), product)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stockResponse{ProductID: product, Stock: stock})
	}
}
