package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// RegisterMovementFromRequest adapta el request HTTP al caso de uso Apply(ctx, MovementInputDTO).
// userID es el usuario autenticado que ejecuta el movimiento.
func (p *MovementProcessor) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*dto.MovementResponse, error) {
	movType, ok := entity.ParseMovementType(in.Type)
	if !ok {
		return nil, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, in.Type)
	}
	input := MovementInputDTO{
		ProductID:           strings.TrimSpace(in.ProductID),
		UserID:              userID,
		Type:                movType,
		Quantity:            in.Quantity,
		SourceLocation:      in.SourceLocation,
		DestinationLocation: in.DestinationLocation,
		Reason:              in.Reason,
		Reference:           in.Reference,
		WorkOrderID:         in.WorkOrderID,
		OriginalMovementID:  strings.TrimSpace(in.OriginalMovementID),
		AcquisitionCost:     in.AcquisitionCost,
	}
	mov, err := p.Apply(ctx, input)
	if err != nil {
		return nil, err
	}
	out := dto.FromMovement(mov)
	return &out, nil
}
