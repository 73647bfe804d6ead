package detect

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes the live threshold config. A replaced config takes
// effect on the next sample, including for trips already in progress.
func RegisterRoutes(r fiber.Router, store *Store, authMiddleware fiber.Handler) {
	r.Get("/config", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(store.Current())
	})

	r.Put("/config", authMiddleware, func(c *fiber.Ctx) error {
		var cfg Config
		if err := c.BodyParser(&cfg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := cfg.Validate(); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		return c.JSON(store.Replace(cfg))
	})
}
