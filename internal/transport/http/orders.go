package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/shadowcc/keyshop/internal/app"
	"github.com/shadowcc/keyshop/internal/domain"
)

const maxOrderBodyBytes = 64 << 10

// OrderSubmitter is the minimal interface needed to accept new orders.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, in app.SubmitOrderInput) (domain.Order, error)
}

// OrderConfirmer is the minimal interface needed to confirm orders.
type OrderConfirmer interface {
	ConfirmOrder(ctx context.Context, id string) (app.ConfirmResult, error)
}

type submitOrderRequest struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Discord     string     `json:"discord"`
	Details     string     `json:"details"`
	ServiceName string     `json:"serviceName"`
	TierName    string     `json:"tierName"`
	TierPrice   priceField `json:"tierPrice"`
}

// priceField accepts the tier price as either a JSON string or number.
type priceField string

func (p *priceField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = priceField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = priceField(n.String())
	return nil
}

type submitOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type confirmOrderResponse struct {
	Status app.ConfirmStatus `json:"status"`
}

// HandleSubmitOrder accepts an order and mails the customer a confirmation
// link. The order id is never returned to the caller.
func HandleSubmitOrder(svc OrderSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitOrderRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		_, err := svc.SubmitOrder(r.Context(), app.SubmitOrderInput{
			Name:        req.Name,
			Email:       req.Email,
			Discord:     req.Discord,
			Details:     req.Details,
			ServiceName: req.ServiceName,
			TierName:    req.TierName,
			TierPrice:   string(req.TierPrice),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, submitOrderResponse{
			Success: true,
			Message: "Order submitted. Check your email to confirm it.",
		})
	}
}

// HandleConfirmOrderRedirect serves the link mailed to customers. Every
// outcome redirects to the confirmation page with a status parameter.
func HandleConfirmOrderRedirect(svc OrderConfirmer, pageURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		status := app.ConfirmStatusInvalid
		if id != "" {
			res, _ := svc.ConfirmOrder(r.Context(), id)
			status = res.Status
		}
		http.Redirect(w, r, statusURL(pageURL, status), http.StatusSeeOther)
	}
}

// HandleConfirmOrder is the JSON variant of the confirmation endpoint.
func HandleConfirmOrder(svc OrderConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, _ := svc.ConfirmOrder(r.Context(), chi.URLParam(r, "id"))

		code := http.StatusOK
		switch res.Status {
		case app.ConfirmStatusConfirmed, app.ConfirmStatusAlready:
		case app.ConfirmStatusExpired:
			code = http.StatusNotFound
		case app.ConfirmStatusInvalid:
			code = http.StatusBadRequest
		default:
			res.Status = app.ConfirmStatusError
			code = http.StatusInternalServerError
		}
		writeJSON(w, code, confirmOrderResponse{Status: res.Status})
	}
}

func statusURL(pageURL string, status app.ConfirmStatus) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL + "?status=" + url.QueryEscape(string(status))
	}
	q := u.Query()
	q.Set("status", string(status))
	u.RawQuery = q.Encode()
	return u.String()
}
