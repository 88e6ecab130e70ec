package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/soko-digital/soko/internal/identity"
	"github.com/soko-digital/soko/internal/ledger"
)

// RegisterIdentityRoutes wires registration and auto-provisions the buyer's
// wallet, which is the precondition the purchase path relies on.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, ledgerStore ledger.Store, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		accountID, err := uuid.Parse(user.ID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if err := ledgerStore.EnsureWallet(c.UserContext(), accountID); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		if logger != nil {
			logger.Info("identity.register completed",
				slog.String("user_id", user.ID),
				slog.String("email", user.Email),
				slog.Int("status", http.StatusCreated),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"user_id": user.ID,
			"email":   user.Email,
			"role":    user.Role,
		})
	})
}
