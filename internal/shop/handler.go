package shop

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
)

const maxBodyBytes = 1 << 20

// Handler serves the shop and product resources.
type Handler struct {
	repo *Repository
}

// NewHandler creates a handler backed by repo.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the resource routes on r.
//
//	GET, POST              /shops                    (?page=&per_page=)
//	GET, HEAD, PUT, DELETE /shops/{shopID}
//	GET, POST              /shops/{shopID}/products  (?page=&per_page=)
//	GET, HEAD, PUT, DELETE /shops/{shopID}/products/{productID}
func (h *Handler) Routes(r chi.Router) {
	r.Route("/shops", func(r chi.Router) {
		r.Get("/", h.listShops)
		r.Post("/", h.createShop)

		r.Route("/{shopID}", func(r chi.Router) {
			r.Get("/", h.getShop)
			r.Head("/", h.getShop)
			r.Put("/", h.putShop)
			r.Delete("/", h.deleteShop)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.listProducts)
				r.Post("/", h.createProduct)
				r.Get("/{productID}", h.getProduct)
				r.Head("/{productID}", h.getProduct)
				r.Put("/{productID}", h.putProduct)
				r.Delete("/{productID}", h.deleteProduct)
			})
		})
	})
}

func (h *Handler) listShops(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	shops, total, err := h.repo.ListShops(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	setPageHeaders(w, page, total)
	writeJSON(w, http.StatusOK, shops)
}

func (h *Handler) createShop(w http.ResponseWriter, r *http.Request) {
	var in ShopInput
	if !decode(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.repo.CreateShop(r.Context(), "", in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, r, shopPath(s.ID), s)
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "shopID")
	if !ok {
		return
	}
	s, err := h.repo.GetShop(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// putShop replaces a shop, creating it under the given id if it does not exist.
func (h *Handler) putShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "shopID")
	if !ok {
		return
	}
	var in ShopInput
	if !decode(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.repo.UpdateShop(r.Context(), id, in)
	if errors.Is(err, ErrNotFound) {
		s, err = h.repo.CreateShop(r.Context(), id, in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		created(w, r, shopPath(s.ID), s)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) deleteShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "shopID")
	if !ok {
		return
	}
	if err := h.repo.DeleteShop(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopParam(w, r)
	if !ok {
		return
	}
	page, err := pageFromRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	products, total, err := h.repo.ListProducts(r.Context(), shopID, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	setPageHeaders(w, page, total)
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopParam(w, r)
	if !ok {
		return
	}
	var in ProductInput
	if !decode(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.repo.CreateProduct(r.Context(), shopID, "", in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created(w, r, productPath(shopID, p.ID), p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "productID")
	if !ok {
		return
	}
	p, err := h.repo.GetProduct(r.Context(), shopID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// putProduct replaces a product, creating it under the given id if it does not exist.
func (h *Handler) putProduct(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "productID")
	if !ok {
		return
	}
	var in ProductInput
	if !decode(w, r, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.repo.UpdateProduct(r.Context(), shopID, id, in)
	if errors.Is(err, ErrNotFound) {
		p, err = h.repo.CreateProduct(r.Context(), shopID, id, in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		created(w, r, productPath(shopID, p.ID), p)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "productID")
	if !ok {
		return
	}
	if err := h.repo.DeleteProduct(r.Context(), shopID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// shopParam resolves the shop id of a product route and checks that the shop exists.
func (h *Handler) shopParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	shopID, ok := idParam(w, r, "shopID")
	if !ok {
		return "", false
	}
	exists, err := h.repo.ShopExists(r.Context(), shopID)
	if err != nil {
		h.fail(w, r, err)
		return "", false
	}
	if !exists {
		h.fail(w, r, ErrNotFound)
		return "", false
	}
	return shopID, true
}

// fail maps err onto an error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ErrInvalidInput.Error(), Fields: verr.Fields})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		hlog.FromRequest(r).Error().Err(err).Str("component", "shop").Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// idParam returns the canonical form of a UUID route parameter.
// Anything that is not a UUID does not address a resource.
func idParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: ErrNotFound.Error()})
		return "", false
	}
	return id.String(), true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("malformed body: %v", err)})
		return false
	}
	return true
}

// created writes a 201 with an absolute Location for path.
func created(w http.ResponseWriter, r *http.Request, path string, v any) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	w.Header().Set("Location", scheme+"://"+r.Host+path)
	writeJSON(w, http.StatusCreated, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func shopPath(id string) string {
	return "/shops/" + id
}

func productPath(shopID, id string) string {
	return "/shops/" + shopID + "/products/" + id
}
