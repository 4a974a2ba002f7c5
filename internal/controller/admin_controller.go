package controller

import (
	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/serverutils"
	"exoplanet-classifier-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
}

type adminController struct {
	service    service.IAdminService
	adminToken string
}

func NewAdminController(service service.IAdminService, adminToken string) IAdminController {
	return &adminController{
		service:    service,
		adminToken: adminToken,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/v1")
	h.Use(serverutils.AdminTokenMiddleware(c.adminToken))

	// Logs
	h.Get("/logs", c.GetLogs)
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	var req dto.LogListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	logs, err := c.service.GetSystemLogs(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}
