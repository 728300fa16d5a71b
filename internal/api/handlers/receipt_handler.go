package handlers

import (
	"time"

	"grocitrack/internal/dto"
	"grocitrack/internal/repository"
	"grocitrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReceiptHandler struct {
	receipts *repository.ReceiptRepository
	products *repository.ProductRepository
	ingest   *service.ReceiptService
	logger   *zap.Logger
}

func NewReceiptHandler(
	receipts *repository.ReceiptRepository,
	products *repository.ProductRepository,
	ingest *service.ReceiptService,
	logger *zap.Logger,
) *ReceiptHandler {
	return &ReceiptHandler{
		receipts: receipts,
		products: products,
		ingest:   ingest,
		logger:   logger,
	}
}

// ListReceipts returns every ingested receipt, newest first.
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	receipts, err := h.receipts.List(c.Context())
	if err != nil {
		h.logger.Error("Failed to list receipts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list receipts",
		})
	}

	response := make([]dto.ReceiptResponse, 0, len(receipts))
	for _, receipt := range receipts {
		response = append(response, dto.ReceiptResponse{
			ID:            receipt.ID.String(),
			TransactionID: receipt.TransactionID,
			Datetime:      receipt.Datetime.Format(time.RFC3339),
			LocationID:    receipt.LocationID.String(),
			TotalPrice:    receipt.TotalPrice,
			TotalDiscount: receipt.TotalDiscount,
			IsEmpty:       receipt.IsEmpty,
		})
	}

	return c.JSON(response)
}

// GetReceiptProducts returns the resolved products of one receipt,
// including the not-found flag and the count of retained candidates, the
// data a review UI needs.
func (h *ReceiptHandler) GetReceiptProducts(c *fiber.Ctx) error {
	receiptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt id",
		})
	}

	products, err := h.products.GetByReceiptID(c.Context(), receiptID)
	if err != nil {
		h.logger.Error("Failed to load products", zap.String("receipt_id", receiptID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load products",
		})
	}

	response := make([]dto.ProductResponse, 0, len(products))
	for _, product := range products {
		response = append(response, dto.ProductResponse{
			ID:               product.ID.String(),
			Description:      product.Description,
			Name:             product.Name,
			ProductID:        product.ProductID,
			CategoryID:       product.CategoryID,
			Quantity:         product.Quantity,
			Unit:             product.Unit,
			Price:            product.Price,
			TotalPrice:       product.TotalPrice,
			NotFound:         product.NotFound,
			PotentialMatches: len(product.PotentialMatches),
		})
	}

	return c.JSON(response)
}

// SyncReceipts triggers an ingest pass against the vendor API.
func (h *ReceiptHandler) SyncReceipts(c *fiber.Ctx) error {
	added, err := h.ingest.SyncReceipts(c.Context())
	if err != nil {
		h.logger.Error("Receipt sync failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Receipt sync failed",
		})
	}

	return c.JSON(dto.SyncResponse{ReceiptsAdded: added})
}
