package http

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shadowcc/keyshop/internal/domain"
	"github.com/shadowcc/keyshop/internal/keysource"
)

const (
	maxKeysBodyBytes      = 1 << 20
	keysFingerprintHeader = "X-Keys-Fingerprint"
)

// KeyAdder is the minimal interface needed to append keys to inventory.
type KeyAdder interface {
	AddKeys(ctx context.Context, entries []domain.KeyEntry) error
}

// KeyClaimer is the minimal interface needed to hand out a key.
type KeyClaimer interface {
	ClaimKey(ctx context.Context, product domain.ProductID) (string, bool, error)
}

// SourceLoader reads the authoritative key file.
type SourceLoader interface {
	Load(ctx context.Context) (keysource.Snapshot, error)
}

// InventoryRefresher forces a reconciliation against the key source.
type InventoryRefresher interface {
	Refresh(ctx context.Context) error
}

type addKeysRequest struct {
	Keys []keyEntryRequest `json:"keys"`
}

type keyEntryRequest struct {
	Key       string `json:"key"`
	ProductID string `json:"product_id"`
}

type addKeysResponse struct {
	Added int `json:"added"`
}

type claimKeyResponse struct {
	ProductID domain.ProductID `json:"product_id"`
	Key       string           `json:"key"`
}

type syncResponse struct {
	Status string                   `json:"status"`
	Stock  map[domain.ProductID]int `json:"stock"`
}

// HandleAddKeys appends keys from a JSON body, or from a text/plain body in
// the key file format.
func HandleAddKeys(svc KeyAdder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := http.MaxBytesReader(w, r.Body, maxKeysBodyBytes)

		var entries []domain.KeyEntry
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "text/plain" {
			raw, err := io.ReadAll(body)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			entries = keysource.Parse(raw)
		} else {
			var req addKeysRequest
			dec := json.NewDecoder(body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			entries = make([]domain.KeyEntry, 0, len(req.Keys))
			for _, k := range req.Keys {
				entries = append(entries, domain.KeyEntry{Key: k.Key, ProductID: domain.ProductID(k.ProductID)})
			}
		}

		if len(entries) == 0 {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "no keys provided")
			return
		}
		if err := svc.AddKeys(r.Context(), entries); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, addKeysResponse{Added: len(entries)})
	}
}

// HandleClaimKey removes and returns the oldest key of a product.
func HandleClaimKey(svc KeyClaimer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product := domain.ProductID(chi.URLParam(r, "productID"))
		if !product.IsKnown() {
			writeError(w, http.StatusNotFound, codeUnknownProduct, domain.ErrUnknownProduct.Error())
			return
		}

		key, ok, err := svc.ClaimKey(r.Context(), product)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, codeOutOfStock, "out of stock")
			return
		}
		writeJSON(w, http.StatusOK, claimKeyResponse{ProductID: product, Key: key})
	}
}

// HandleExportKeys renders the key source in its canonical grouped form.
func HandleExportKeys(source SourceLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := source.Load(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set(keysFingerprintHeader, snap.Fingerprint)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, keysource.Format(snap.Entries))
	}
}

// HandleSyncInventory forces a reconciliation and reports the resulting stock.
func HandleSyncInventory(refresher InventoryRefresher, stock StockReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := refresher.Refresh(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		counts, err := stock.GetAllStock(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, syncResponse{Status: "synced", Stock: counts})
	}
}
