package tracking

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/detect"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/geo"
)

func RegisterRoutes(r fiber.Router, mgr *detect.Manager, authMiddleware fiber.Handler) {
	r.Post("/sensor", authMiddleware, func(c *fiber.Ctx) error {
		var req SensorRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !geo.ValidCoordinate(req.Latitude, req.Longitude) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid coordinates")
		}

		res := mgr.Process(userID(c), req.ToInput(time.Now()))
		return c.JSON(res)
	})

	r.Post("/control", authMiddleware, func(c *fiber.Ctx) error {
		var req ControlRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		switch req.Action {
		case "start":
			summary, started := mgr.ManualStart(userID(c), detect.StartOptions{
				Mode:       req.Mode,
				Purpose:    req.Purpose,
				Companions: req.Companions,
				Notes:      req.Notes,
			})
			return c.JSON(ControlResponse{Changed: started, Trip: &summary, State: detect.StateActive})
		case "stop":
			summary, stopped := mgr.ManualStop(userID(c))
			resp := ControlResponse{Changed: stopped, State: detect.StateIdle}
			if stopped {
				resp.Trip = &summary
			}
			return c.JSON(resp)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "action must be start or stop")
		}
	})

	r.Get("/status", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(mgr.Status(userID(c)))
	})

	r.Get("/overview", authMiddleware, func(c *fiber.Ctx) error {
		active := mgr.ActiveTrips()
		return c.JSON(fiber.Map{
			"active_count": len(active),
			"trips":        active,
		})
	})
}

func userID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}
