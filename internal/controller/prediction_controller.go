package controller

import (
	"exoplanet-classifier-be/internal/pkg/serverutils"
	"exoplanet-classifier-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPredictionController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
}

type predictionController struct {
	classifierService service.IClassifierService
}

func NewPredictionController(classifierService service.IClassifierService) IPredictionController {
	return &predictionController{
		classifierService: classifierService,
	}
}

func (c *predictionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/predictions/v1")
	h.Get("", c.List)
}

// List returns the caller's recent predictions.
func (c *predictionController) List(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)

	res, err := c.classifierService.ListPredictions(ctx.Context(), serverutils.SessionID(ctx), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list predictions", res))
}
