package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soko-digital/soko/internal/topup"
)

// RegisterTopupRoutes wires buyer-side top-up submission and cancellation.
func RegisterTopupRoutes(r fiber.Router, svc *topup.Service) {
	r.Post("/topups", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		var req struct {
			Amount string `json:"amount"`
			Method string `json:"method"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid amount")
		}

		request, err := svc.Submit(c.UserContext(), accountID, amount, req.Method)
		if err != nil {
			if errors.Is(err, topup.ErrTooManyPending) {
				return fiber.NewError(http.StatusConflict, err.Error())
			}
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return c.Status(http.StatusCreated).JSON(topupJSON(request))
	})

	r.Get("/topups", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		requests, err := svc.ListByAccount(c.UserContext(), accountID, limitQuery(c))
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		out := make([]fiber.Map, 0, len(requests))
		for _, req := range requests {
			out = append(out, topupJSON(req))
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"topups": out})
	})

	r.Post("/topups/:requestId/cancel", func(c *fiber.Ctx) error {
		accountID, err := currentAccountID(c)
		if err != nil {
			return err
		}
		requestID, err := uuid.Parse(c.Params("requestId"))
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request id")
		}
		request, err := svc.Cancel(c.UserContext(), requestID, accountID)
		if err != nil {
			return topupError(err)
		}
		return c.Status(http.StatusOK).JSON(topupJSON(request))
	})
}

func topupError(err error) error {
	switch {
	case errors.Is(err, topup.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, topup.ErrNotPending):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, topup.ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func topupJSON(req topup.Request) fiber.Map {
	m := fiber.Map{
		"id":         req.ID,
		"account_id": req.AccountID,
		"amount":     req.Amount.String(),
		"method":     req.Method,
		"status":     req.Status,
		"created_at": req.CreatedAt,
	}
	if req.ReviewerID != nil {
		m["reviewer_id"] = req.ReviewerID
	}
	if req.ReviewedAt != nil {
		m["reviewed_at"] = req.ReviewedAt
	}
	if req.ReviewNote != "" {
		m["review_note"] = req.ReviewNote
	}
	return m
}
