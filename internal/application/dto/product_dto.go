package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto con su ledger vacío.
type CreateProductRequest struct {
	SKU           string `json:"sku" validate:"required,min=1,max=100"`
	Name          string `json:"name" validate:"required,min=1,max=200"`
	CostingMethod string `json:"costing_method" validate:"required,oneof=FIFO LIFO AVERAGE fifo lifo average"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	CostingMethod string          `json:"costing_method"`
	CurrentStock  int64           `json:"current_stock"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CostLayerResponse capa de costo FIFO/LIFO.
type CostLayerResponse struct {
	Sequence int64           `json:"sequence"`
	Quantity int64           `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// LedgerResponse estado actual del ledger de un producto.
// UnitCost es el promedio ponderado (AVERAGE); Layers queda vacío en AVERAGE.
type LedgerResponse struct {
	ProductID     string              `json:"product_id"`
	CostingMethod string              `json:"costing_method"`
	CurrentStock  int64               `json:"current_stock"`
	UnitCost      decimal.Decimal     `json:"unit_cost"`
	Value         decimal.Decimal     `json:"inventory_value"`
	Layers        []CostLayerResponse `json:"layers"`
	Version       int64               `json:"version"`
}
