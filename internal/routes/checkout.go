package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/soko-digital/soko/internal/catalog"
	"github.com/soko-digital/soko/internal/checkout"
	"github.com/soko-digital/soko/internal/inventory"
	"github.com/soko-digital/soko/internal/ledger"
	"github.com/soko-digital/soko/internal/order"
)

// RegisterCheckoutRoutes wires the purchase endpoint and order history.
func RegisterCheckoutRoutes(r fiber.Router, svc *checkout.Service, orders order.Store) {
	r.Post("/purchase", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		var req struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid product id")
		}

		receipt, err := svc.Purchase(c.UserContext(), accountID, productID, req.Quantity)
		if err != nil {
			return purchaseError(c, err)
		}

		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"order_id":    receipt.OrderID,
			"total":       receipt.Total.String(),
			"payloads":    receipt.Payloads,
			"new_balance": receipt.NewBalance.String(),
		})
	})

	r.Get("/orders", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		list, err := orders.ListByAccount(c.UserContext(), accountID, limitQuery(c))
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]fiber.Map, 0, len(list))
		for _, o := range list {
			out = append(out, fiber.Map{
				"id":         o.ID,
				"product_id": o.ProductID,
				"quantity":   o.Quantity,
				"unit_price": o.UnitPrice.String(),
				"total":      o.Total.String(),
				"payloads":   o.Payloads,
				"created_at": o.CreatedAt,
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"orders": out})
	})

	r.Get("/orders/:orderId", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		orderID, err := uuid.Parse(c.Params("orderId"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid order id")
		}
		o, err := orders.Get(c.UserContext(), orderID)
		if err != nil || o.AccountID != accountID {
			return fiber.NewError(http.StatusNotFound, "order not found")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"id":         o.ID,
			"product_id": o.ProductID,
			"quantity":   o.Quantity,
			"unit_price": o.UnitPrice.String(),
			"total":      o.Total.String(),
			"payloads":   o.Payloads,
			"created_at": o.CreatedAt,
		})
	})
}

// purchaseError maps settlement failures onto HTTP responses. Business
// failures are reported verbatim; only storage faults are retryable.
func purchaseError(c *fiber.Ctx, err error) error {
	var (
		invalidQty   *checkout.InvalidQuantityError
		insufficient *checkout.InsufficientBalanceError
		outOfStock   *inventory.InsufficientStockError
		storage      *checkout.StorageError
	)
	switch {
	case errors.As(err, &invalidQty):
		return fiber.NewError(http.StatusBadRequest, invalidQty.Error())
	case errors.Is(err, catalog.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrInactive):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrWalletMissing):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.As(err, &insufficient):
		return c.Status(http.StatusPaymentRequired).JSON(fiber.Map{
			"error":    "insufficient balance",
			"balance":  insufficient.Balance.String(),
			"required": insufficient.Required.String(),
		})
	case errors.As(err, &outOfStock):
		return c.Status(http.StatusConflict).JSON(fiber.Map{
			"error":     "insufficient stock",
			"available": outOfStock.Available,
			"requested": outOfStock.Requested,
		})
	case errors.As(err, &storage):
		return fiber.NewError(http.StatusServiceUnavailable, "transient storage failure, retry")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
