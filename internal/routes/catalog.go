package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/soko-digital/soko/internal/catalog"
	"github.com/soko-digital/soko/internal/inventory"
)

// RegisterCatalogRoutes wires public product browsing. Available counts come
// through the read-through cache and are display-only.
func RegisterCatalogRoutes(r fiber.Router, repo catalog.Repository, inv inventory.Store, counts *inventory.CountCache) {
	r.Get("/products", func(c *fiber.Ctx) error {
		products, err := repo.List(c.UserContext(), true)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]fiber.Map, 0, len(products))
		for _, p := range products {
			out = append(out, fiber.Map{
				"id":         p.ID,
				"name":       p.Name,
				"unit_price": p.UnitPrice.String(),
				"available":  availableCount(c, inv, counts, p.ID),
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"products": out})
	})

	r.Get("/products/:productId", func(c *fiber.Ctx) error {
		productID, err := uuid.Parse(c.Params("productId"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid product id")
		}
		p, err := repo.Get(c.UserContext(), productID)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "product not found")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"id":          p.ID,
			"name":        p.Name,
			"description": p.Description,
			"unit_price":  p.UnitPrice.String(),
			"active":      p.Active,
			"available":   availableCount(c, inv, counts, p.ID),
		})
	})
}

func availableCount(c *fiber.Ctx, inv inventory.Store, counts *inventory.CountCache, productID uuid.UUID) int {
	if n, ok := counts.Get(c.UserContext(), productID); ok {
		return n
	}
	n, err := inv.CountAvailable(c.UserContext(), productID)
	if err != nil {
		return 0
	}
	counts.Set(c.UserContext(), productID, n)
	return n
}
