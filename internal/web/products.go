package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/calvinalkan/tillbook/internal/store"
	"github.com/calvinalkan/tillbook/pkg/kit"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.Catalog.List()
	if err != nil {
		s.Log.Error("list products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var p store.Product
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)

	err := s.Catalog.Insert(p)
	switch {
	case errors.Is(err, store.ErrInvalidProduct):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, store.ErrSKUExists):
		kit.WriteError(w, r, http.StatusConflict, "sku already exists", map[string]any{"sku": p.SKU})
		return
	case err != nil:
		s.Log.Error("insert product failed", zap.Error(err), zap.String("sku", p.SKU))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	p, ok, err := s.Catalog.FindBySKU(sku)
	if err != nil {
		s.Log.Error("get product failed", zap.Error(err), zap.String("sku", sku))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"sku": sku})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

type searchReq struct {
	SearchTerm string `json:"search_term"`
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req searchReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	matches, err := s.Catalog.Search(req.SearchTerm)
	if err != nil {
		s.Log.Error("search products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, matches)
}
