// Package shop implements the shop and product resources served behind the response cache.
package shop

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a shop or product does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a request body fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when an id is already used by another shop's product.
	ErrConflict = errors.New("conflict")
)

// Shop is a store location.
type Shop struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"last_modified"`
}

// Product is an item sold by a shop.
type Product struct {
	ID           string    `json:"id"`
	ShopID       string    `json:"shop_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	Distributor  string    `json:"distributor"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"last_modified"`
}

// ShopInput is the request body for creating or replacing a shop.
type ShopInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ProductInput is the request body for creating or replacing a product.
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Distributor string  `json:"distributor"`
}

// ValidationError lists the invalid fields of an input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
