package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// InventoryHandler maneja las peticiones HTTP de movimientos de inventario (protegido).
type InventoryHandler struct {
	processor *inventory.MovementProcessor
	log       *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(processor *inventory.MovementProcessor, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{processor: processor, log: log}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Valora el movimiento con el método de costeo del producto y lo confirma contra la versión vigente del ledger.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type, quantity, acquisition_cost (RECEIPT), original_movement_id (RETURN)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.InsufficientStockResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.processor.RegisterMovementFromRequest(c.UserContext(), userID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
