package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pageflowhq/pageflow/internal/service"
)

type PageHandler struct {
	s service.PageService
}

func NewPageHandler(service service.PageService) *PageHandler {
	return &PageHandler{s: service}
}

func (h *PageHandler) ListPages(c *fiber.Ctx) error {
	memberID := GetMemberID(c)

	pages, err := h.s.List(c.Context(), memberID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list pages",
		})
	}

	return c.Status(fiber.StatusOK).JSON(pages)
}

func (h *PageHandler) RemovePage(c *fiber.Ctx) error {
	memberID := GetMemberID(c)
	pageID := c.QueryInt("page_id", 0)

	if err := h.s.Remove(c.Context(), memberID, int64(pageID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove page",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
