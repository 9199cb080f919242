package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/pageflowhq/pageflow/internal/service"
	"github.com/pageflowhq/pageflow/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	memberID := GetMemberID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := &transfer.PostCreation{
		PageID:   c.FormValue("page_id"),
		Platform: c.FormValue("platform"),
		PostText: c.FormValue("post_text"),
		PostAt:   c.FormValue("post_at"),
	}

	postID, err := h.s.Create(c.Context(), memberID, pc, formFile(form, "image"), formFile(form, "video"))
	if err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"id":      postID,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	memberID := GetMemberID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.Get(c.Context(), memberID, int64(postID))
		if err != nil {
			return postError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	status := c.QueryInt("status", 0)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	posts, total, err := h.s.List(c.Context(), memberID, status, page, limit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"posts": posts,
		"total": total,
	})
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	memberID := GetMemberID(c)
	postID := c.QueryInt("id", 0)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := &transfer.PostCreation{
		PageID:   c.FormValue("page_id"),
		Platform: c.FormValue("platform"),
		PostText: c.FormValue("post_text"),
		PostAt:   c.FormValue("post_at"),
	}

	if err := h.s.Update(c.Context(), memberID, int64(postID), pc, formFile(form, "image"), formFile(form, "video")); err != nil {
		return postError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post updated successfully",
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	memberID := GetMemberID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), memberID, int64(postID)); err != nil {
		return postError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func postError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrPageNotLinked),
		errors.Is(err, service.ErrPostImmutable),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, service.ErrUnsupportedType):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "something went wrong"})
	}
}
