package controller

import (
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/serverutils"
	"exoplanet-classifier-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHeldOutController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Replace(ctx *fiber.Ctx) error
	Add(ctx *fiber.Ctx) error
	Remove(ctx *fiber.Ctx) error
}

type heldOutController struct {
	heldOutService service.IHeldOutService
}

func NewHeldOutController(heldOutService service.IHeldOutService) IHeldOutController {
	return &heldOutController{
		heldOutService: heldOutService,
	}
}

func (c *heldOutController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/heldout/v1")
	h.Get("", c.List)
	h.Put("", c.Replace)
	h.Post("", c.Add)
	h.Delete("", c.Remove)
}

func (c *heldOutController) List(ctx *fiber.Ctx) error {
	res, err := c.heldOutService.List(ctx.Context(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list held-out ids", res))
}

func (c *heldOutController) Replace(ctx *fiber.Ctx) error {
	req, err := parseHeldOut(ctx)
	if err != nil {
		return err
	}

	res, err := c.heldOutService.Replace(ctx.Context(), serverutils.SessionID(ctx), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success replace held-out ids", res))
}

func (c *heldOutController) Add(ctx *fiber.Ctx) error {
	req, err := parseHeldOut(ctx)
	if err != nil {
		return err
	}

	res, err := c.heldOutService.Add(ctx.Context(), serverutils.SessionID(ctx), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success add held-out ids", res))
}

func (c *heldOutController) Remove(ctx *fiber.Ctx) error {
	req, err := parseHeldOut(ctx)
	if err != nil {
		return err
	}

	res, err := c.heldOutService.Remove(ctx.Context(), serverutils.SessionID(ctx), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success remove held-out ids", res))
}

// parseHeldOut accepts an empty body as an empty id list.
func parseHeldOut(ctx *fiber.Ctx) (*dto.HeldOutRequest, error) {
	var req dto.HeldOutRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}
