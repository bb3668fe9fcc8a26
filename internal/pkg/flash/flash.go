package flash

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

// Flash message key in Locals
const FlashKey = "flash"

// ShowBannerKey marks the one-shot onboarding-complete banner
const ShowBannerKey = "showBanner"

// Set sets a flash message for the current request
func Set(c *fiber.Ctx, message fiber.Map) {
	c.Locals(FlashKey, message)
}

// Get returns the flash message of the current request. The cookie-backed
// message from the previous redirect is read once and cached in Locals.
func Get(c *fiber.Ctx) fiber.Map {
	if m, ok := c.Locals(FlashKey).(fiber.Map); ok {
		return m
	}
	m := flash.Get(c)
	if m == nil {
		m = fiber.Map{}
	}
	c.Locals(FlashKey, m)
	return m
}

// ShowBanner reports whether the previous redirect asked for the onboarding banner.
func ShowBanner(c *fiber.Ctx) bool {
	switch v := Get(c)[ShowBannerKey].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// Error returns the error message carried over from the previous redirect.
func Error(c *fiber.Ctx) string {
	m := Get(c)
	if t, _ := m["type"].(string); t != "error" {
		return ""
	}
	msg, _ := m["message"].(string)
	return msg
}
