package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/catalog"
	"github.com/soko-digital/soko/internal/inventory"
	"github.com/soko-digital/soko/internal/topup"
)

// RegisterAdminRoutes wires catalog management, stock import and the top-up
// review queue. The caller must gate the group with RequireAdmin.
func RegisterAdminRoutes(r fiber.Router, repo catalog.Repository, inv inventory.Store, counts *inventory.CountCache, topups *topup.Service, logger *slog.Logger) {
	r.Post("/products", func(c *fiber.Ctx) error {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			UnitPrice   string `json:"unit_price"`
			Active      bool   `json:"active"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		price, err := decimal.NewFromString(req.UnitPrice)
		if err != nil || price.Sign() <= 0 {
			return fiber.NewError(http.StatusBadRequest, "unit_price must be a positive decimal")
		}
		if req.Name == "" {
			return fiber.NewError(http.StatusBadRequest, "name is required")
		}

		p := catalog.Product{
			ID:          uuid.New(),
			Name:        req.Name,
			Description: req.Description,
			UnitPrice:   price,
			Active:      req.Active,
			CreatedAt:   time.Now().UTC(),
		}
		if err := repo.Create(c.UserContext(), p); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"id": p.ID})
	})

	r.Put("/products/:productId", func(c *fiber.Ctx) error {
		productID, err := uuid.Parse(c.Params("productId"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid product id")
		}
		p, err := repo.Get(c.UserContext(), productID)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "product not found")
		}
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
			UnitPrice   *string `json:"unit_price"`
			Active      *bool   `json:"active"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.UnitPrice != nil {
			price, err := decimal.NewFromString(*req.UnitPrice)
			if err != nil || price.Sign() <= 0 {
				return fiber.NewError(http.StatusBadRequest, "unit_price must be a positive decimal")
			}
			p.UnitPrice = price
		}
		if req.Active != nil {
			p.Active = *req.Active
		}
		if err := repo.Update(c.UserContext(), p); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"id": p.ID})
	})

	r.Post("/products/:productId/stock", func(c *fiber.Ctx) error {
		productID, err := uuid.Parse(c.Params("productId"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid product id")
		}
		if _, err := repo.Get(c.UserContext(), productID); err != nil {
			return fiber.NewError(http.StatusNotFound, "product not found")
		}
		var req struct {
			Payloads []string `json:"payloads"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if len(req.Payloads) == 0 {
			return fiber.NewError(http.StatusBadRequest, "payloads are required")
		}

		created, err := inv.Import(c.UserContext(), productID, req.Payloads)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		counts.Invalidate(c.UserContext(), productID)

		if logger != nil {
			logger.Info("stock imported",
				slog.String("product_id", productID.String()),
				slog.Int("units", created),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"imported": created})
	})

	r.Get("/topups/pending", func(c *fiber.Ctx) error {
		requests, err := topups.ListPending(c.UserContext(), limitQuery(c))
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]fiber.Map, 0, len(requests))
		for _, req := range requests {
			out = append(out, topupJSON(req))
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"topups": out})
	})

	r.Post("/topups/:requestId/approve", func(c *fiber.Ctx) error {
		reviewerID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		requestID, err := uuid.Parse(c.Params("requestId"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request id")
		}
		var req struct {
			FinalAmount string `json:"final_amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		finalAmount := decimal.Zero
		if req.FinalAmount != "" {
			if finalAmount, err = decimal.NewFromString(req.FinalAmount); err != nil {
				return fiber.NewError(http.StatusBadRequest, "invalid final_amount")
			}
		}

		request, entry, err := topups.Approve(c.UserContext(), requestID, reviewerID, finalAmount)
		if err != nil {
			return topupError(err)
		}
		out := topupJSON(request)
		out["credited"] = entry.Amount.String()
		out["balance_after"] = entry.BalanceAfter.String()
		return c.Status(http.StatusOK).JSON(out)
	})

	r.Post("/topups/:requestId/reject", func(c *fiber.Ctx) error {
		reviewerID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		requestID, err := uuid.Parse(c.Params("requestId"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request id")
		}
		var req struct {
			Note string `json:"note"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		request, err := topups.Reject(c.UserContext(), requestID, reviewerID, req.Note)
		if err != nil {
			return topupError(err)
		}
		return c.Status(http.StatusOK).JSON(topupJSON(request))
	})
}
