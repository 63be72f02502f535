package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashCookie carries one-shot messages across a redirect. Its value is
// encrypted by the encryptcookie middleware, so a client cannot plant one.
const FlashCookie = "flash"

const (
	flashKey     = "auth_flash"
	flashReadKey = "auth_flash_read"
)

// CookieKey derives the encryptcookie key from the signing secret.
func CookieKey(secret string) string {
	sum := sha256.Sum256([]byte("cookie:" + secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Flash levels.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AddFlash queues a message for the next page the client renders.
func AddFlash(c *fiber.Ctx, level, message string) {
	pending, _ := c.Locals(flashKey).([]Flash)
	pending = append(pending, Flash{Level: level, Message: message})
	c.Locals(flashKey, pending)

	payload, err := json.Marshal(append(readFlashCookie(c), pending...))
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// PopFlashes returns and clears all queued messages.
func PopFlashes(c *fiber.Ctx) []Flash {
	flashes := readFlashCookie(c)
	c.Locals(flashReadKey, true)
	if pending, ok := c.Locals(flashKey).([]Flash); ok {
		flashes = append(flashes, pending...)
		c.Locals(flashKey, nil)
	}
	if c.Cookies(FlashCookie) != "" || len(flashes) > 0 {
		c.Cookie(&fiber.Cookie{
			Name:     FlashCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	if flashes == nil {
		flashes = []Flash{}
	}
	return flashes
}

func readFlashCookie(c *fiber.Ctx) []Flash {
	if consumed, _ := c.Locals(flashReadKey).(bool); consumed {
		return nil
	}
	raw := c.Cookies(FlashCookie)
	if raw == "" {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(payload, &flashes); err != nil {
		return nil
	}
	return flashes
}

// Redirect queues a flash message and redirects to location.
func Redirect(c *fiber.Ctx, location, level, message string) error {
	if message != "" {
		AddFlash(c, level, message)
	}
	return c.Redirect(location, fiber.StatusFound)
}
