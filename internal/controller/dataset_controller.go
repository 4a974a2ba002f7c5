package controller

import (
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/serverutils"
	"exoplanet-classifier-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDatasetController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	AddRow(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
	Split(ctx *fiber.Ctx) error
	Evaluate(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type datasetController struct {
	datasetService service.IDatasetService
}

func NewDatasetController(datasetService service.IDatasetService) IDatasetController {
	return &datasetController{
		datasetService: datasetService,
	}
}

func (c *datasetController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/dataset/v1")
	h.Get("", c.Show)
	h.Post("upload", c.Upload)
	h.Post("rows", c.AddRow)
	h.Post("save", c.Save)
	h.Post("split", c.Split)
	h.Post("evaluate", c.Evaluate)
	h.Delete("", c.Delete)
}

func (c *datasetController) Show(ctx *fiber.Ctx) error {
	res, err := c.datasetService.Show(ctx.Context(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show dataset", res))
}

func (c *datasetController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing multipart field 'file'")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	res, err := c.datasetService.Upload(ctx.Context(), serverutils.SessionID(ctx), file)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload dataset", res))
}

func (c *datasetController) AddRow(ctx *fiber.Ctx) error {
	var req dto.AddRowRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.datasetService.AddRow(ctx.Context(), serverutils.SessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success add row", res))
}

func (c *datasetController) Save(ctx *fiber.Ctx) error {
	res, err := c.datasetService.Save(ctx.Context(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success queue session build", res))
}

func (c *datasetController) Split(ctx *fiber.Ctx) error {
	var req dto.SplitRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.datasetService.Split(ctx.Context(), serverutils.SessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success split dataset", res))
}

func (c *datasetController) Evaluate(ctx *fiber.Ctx) error {
	var req dto.EvaluateRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.datasetService.Evaluate(ctx.Context(), serverutils.SessionID(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success evaluate", res))
}

func (c *datasetController) Delete(ctx *fiber.Ctx) error {
	err := c.datasetService.Delete(ctx.Context(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete dataset", nil))
}
