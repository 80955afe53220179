package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/calvinalkan/tillbook/internal/store"
	"github.com/calvinalkan/tillbook/pkg/kit"
)

const unknownItemName = "Unknown Item"

type saleItemReq struct {
	SKU         string  `json:"sku"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"price_at_sale"`
}

type saleReq struct {
	Items         []saleItemReq `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	TaxAmount     float64       `json:"tax_amount"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentMethod string        `json:"payment_method"`
}

type saleResp struct {
	TransactionID string `json:"transaction_id"`
	ReceiptURL    string `json:"receipt_url"`
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req saleReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if len(req.Items) == 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "sale needs at least one item", nil)
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "Cash"
	}

	items := make([]store.Item, 0, len(req.Items))
	for _, it := range req.Items {
		// Product names are captured at sale time so the receipt stays
		// readable after catalog edits.
		name := unknownItemName
		p, ok, err := s.Catalog.FindBySKU(it.SKU)
		if err != nil {
			s.Log.Error("sale item lookup failed", zap.Error(err), zap.String("sku", it.SKU))
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}
		if ok {
			name = p.Name
		}

		items = append(items, store.Item{
			SKU:         it.SKU,
			Name:        name,
			Quantity:    it.Quantity,
			PriceAtSale: it.PriceAtSale,
		})
	}

	sale := store.Sale{
		TransactionID: s.IDs.Next(),
		Timestamp:     time.Now().In(s.Config.Location()).Format(time.RFC3339),
		Items:         items,
		Subtotal:      req.Subtotal,
		TaxAmount:     req.TaxAmount,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
	}

	if err := s.Ledger.Append(sale); err != nil {
		if errors.Is(err, store.ErrInvalidSale) {
			kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.Log.Error("append sale failed", zap.Error(err), zap.String("transaction_id", sale.TransactionID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusCreated, saleResp{
		TransactionID: sale.TransactionID,
		ReceiptURL:    "/sales/" + sale.TransactionID,
	})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sale, ok, err := s.Ledger.FindByID(id)
	if err != nil {
		if errors.Is(err, store.ErrInvalidID) {
			kit.WriteError(w, r, http.StatusBadRequest, "malformed transaction id", map[string]any{"id": id})
			return
		}
		s.Log.Error("get sale failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, sale)
}
