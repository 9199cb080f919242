package handlers

import (
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func GetMemberID(c *fiber.Ctx) int64 {
	memberID, _ := strconv.Atoi(c.Locals("member_id").(string))
	return int64(memberID)
}

// formFile returns the first uploaded file under key, or nil when absent.
func formFile(form *multipart.Form, key string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	files := form.File[key]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}
