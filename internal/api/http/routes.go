package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jones/weather-sync/internal/places"
	"github.com/jones/weather-sync/internal/store"
	"github.com/jones/weather-sync/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, session *weather.Session, repo *weather.Repository, placeSvc *places.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		return c.JSON(presentState(session.Latest()))
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		session.Refresh()
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "refreshing"})
	})

	v1.Put("/weather/location", func(c *fiber.Ctx) error {
		var req locationBody
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		session.SetLocation(weather.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude})
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "refreshing"})
	})

	v1.Delete("/weather/cache", func(c *fiber.Ctx) error {
		if err := repo.ClearCache(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear weather cache")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/places", func(c *fiber.Ctx) error {
		list, err := placeSvc.List(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list favorite places")
		}
		return c.JSON(fiber.Map{"places": list})
	})

	v1.Get("/places/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
		}
		candidates, err := placeSvc.Search(c.UserContext(), query)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "place search failed")
		}
		return c.JSON(fiber.Map{"candidates": candidates})
	})

	v1.Get("/places/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid place id")
		}
		place, err := placeSvc.GetByID(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no such favorite place")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch favorite place")
		}
		return c.JSON(place)
	})

	v1.Post("/places", func(c *fiber.Ctx) error {
		var req placeBody
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		saved, err := placeSvc.Add(c.UserContext(), places.Place{
			Name:      req.Name,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save favorite place")
		}
		return c.Status(fiber.StatusCreated).JSON(saved)
	})

	v1.Delete("/places/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid place id")
		}
		if err := placeSvc.DeleteByID(c.UserContext(), id); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to delete favorite place")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// locationBody uses pointers so a zero coordinate still passes `required`.
type locationBody struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type placeBody struct {
	Name      string   `json:"name" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// presentState flattens the state machine into a JSON document tagged by
// variant.
func presentState(state weather.State) fiber.Map {
	switch s := state.(type) {
	case weather.Success:
		return fiber.Map{"state": "success", "current": s.Current, "forecast": s.Forecast, "online": s.Online}
	case weather.Offline:
		return fiber.Map{"state": "offline", "current": s.Current, "forecast": s.Forecast, "online": false}
	case weather.Failure:
		return fiber.Map{"state": "error", "message": s.Message, "online": s.Online}
	default:
		return fiber.Map{"state": "loading"}
	}
}
