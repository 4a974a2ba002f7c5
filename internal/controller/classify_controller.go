package controller

import (
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/serverutils"
	"exoplanet-classifier-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IClassifyController interface {
	RegisterRoutes(r fiber.Router)
	ClassifyLLM(ctx *fiber.Ctx) error
	ClassifyBatch(ctx *fiber.Ctx) error
	ClassifyTabular(ctx *fiber.Ctx) error
}

type classifyController struct {
	classifierService service.IClassifierService
}

func NewClassifyController(classifierService service.IClassifierService) IClassifyController {
	return &classifyController{
		classifierService: classifierService,
	}
}

func (c *classifyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/classify/v1")
	h.Post("llm", c.ClassifyLLM)
	h.Post("llm/batch", c.ClassifyBatch)
	h.Post("tabular", c.ClassifyTabular)
}

func (c *classifyController) ClassifyLLM(ctx *fiber.Ctx) error {
	var req dto.ClassifyLLMRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.classifierService.ClassifyLLM(ctx.Context(), serverutils.SessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success classify", res))
}

func (c *classifyController) ClassifyBatch(ctx *fiber.Ctx) error {
	var req dto.ClassifyBatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.classifierService.ClassifyBatch(ctx.Context(), serverutils.SessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success classify batch", res))
}

func (c *classifyController) ClassifyTabular(ctx *fiber.Ctx) error {
	var req dto.FeaturesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.classifierService.ClassifyTabular(ctx.Context(), serverutils.SessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success classify", res))
}
