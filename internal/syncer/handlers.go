package syncer

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, c *Coordinator, authMiddleware fiber.Handler) {
	r.Post("/now", authMiddleware, func(ctx *fiber.Ctx) error {
		if err := c.SyncNow(ctx.Context()); err != nil {
			return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":  err.Error(),
				"status": c.Status(),
			})
		}
		return ctx.JSON(c.Status())
	})

	r.Get("/status", authMiddleware, func(ctx *fiber.Ctx) error {
		return ctx.JSON(c.Status())
	})

	r.Post("/online", authMiddleware, func(ctx *fiber.Ctx) error {
		var req struct {
			Online bool `json:"online"`
		}
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		c.SetOnline(req.Online)
		return ctx.JSON(c.Status())
	})

	r.Post("/reauthed", authMiddleware, func(ctx *fiber.Ctx) error {
		var req struct {
			Token string `json:"token"`
		}
		if len(ctx.Body()) > 0 {
			if err := ctx.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		c.Reauth(req.Token)
		return ctx.JSON(c.Status())
	})
}
