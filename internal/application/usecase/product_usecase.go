package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ProductUseCase alta de productos y lectura del ledger. Stock y costo se manejan vía movimientos.
type ProductUseCase struct {
	products  repository.ProductRepository
	ledger    repository.LedgerRepository
	movements repository.StockMovementRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(
	products repository.ProductRepository,
	ledger repository.LedgerRepository,
	movements repository.StockMovementRepository,
) *ProductUseCase {
	return &ProductUseCase{products: products, ledger: ledger, movements: movements}
}

// Create crea un producto con stock cero, sin capas y versión 0.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	method, ok := entity.ParseCostingMethod(in.CostingMethod)
	if !ok {
		return nil, fmt.Errorf("%w: método de costeo %q", domain.ErrInvalidInput, in.CostingMethod)
	}
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku requerido", domain.ErrInvalidInput)
	}
	existing, err := uc.products.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now().UTC()
	product := &entity.Product{
		ID:            uuid.New().String(),
		SKU:           sku,
		Name:          strings.TrimSpace(in.Name),
		CostingMethod: method,
		UnitCost:      decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.products.Create(ctx, product); err != nil {
		return nil, err
	}
	out := dto.FromProduct(product)
	return &out, nil
}

// GetByID obtiene un producto por ID. domain.ErrNotFound si no existe.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	out := dto.FromProduct(product)
	return &out, nil
}

// GetLedger devuelve stock, costo, capas y versión vigentes del producto.
func (uc *ProductUseCase) GetLedger(ctx context.Context, productID string) (*dto.LedgerResponse, error) {
	state, version, err := uc.ledger.Load(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := dto.FromLedger(state, version)
	return &out, nil
}

// ListMovements historial de movimientos del producto, más reciente primero.
func (uc *ProductUseCase) ListMovements(ctx context.Context, productID string, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	product, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	list, err := uc.movements.ListByProduct(ctx, productID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.FromMovement(m))
	}
	return &dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}
