package routes

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/soko-digital/soko/internal/ledger"
)

// currentAccountID resolves the authenticated user's account identifier.
func currentAccountID(c *fiber.Ctx) (uuid.UUID, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return uuid.Nil, fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	accountID, err := uuid.Parse(uid)
	if err != nil {
		return uuid.Nil, fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return accountID, nil
}

func limitQuery(c *fiber.Ctx) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}

// RegisterWalletRoutes wires the current user's balance and ledger history.
func RegisterWalletRoutes(r fiber.Router, store ledger.Store) {
	r.Get("/wallet/balance", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		balance, err := store.Balance(c.UserContext(), accountID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"account_id": accountID,
			"balance":    balance.String(),
		})
	})

	r.Get("/wallet/entries", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		entries, err := store.Entries(c.UserContext(), accountID, limitQuery(c))
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]fiber.Map, 0, len(entries))
		for _, e := range entries {
			out = append(out, fiber.Map{
				"id":            e.ID,
				"kind":          e.Kind,
				"amount":        e.Amount.String(),
				"balance_after": e.BalanceAfter.String(),
				"details":       e.Details,
				"created_at":    e.CreatedAt,
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"entries": out})
	})
}
