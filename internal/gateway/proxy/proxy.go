package proxy

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Proxy Handler
// ============================================================

// forwarded request headers; everything else stays at the gateway
var passHeaders = []string{"Content-Type", "Accept", "Authorization"}

// Upstream forwards requests under a gateway prefix to a backing service.
type Upstream struct {
	base   string
	prefix string
	client *http.Client
}

// New прокси на сервис base; prefix отрезается от пути запроса.
func New(base, prefix string) *Upstream {
	return &Upstream{
		base:   strings.TrimRight(base, "/"),
		prefix: prefix,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithClient swaps the HTTP client.
func (u *Upstream) WithClient(c *http.Client) *Upstream {
	u.client = c
	return u
}

// Handler прокси любой метод, сохраняя хвост пути и query.
func (u *Upstream) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		return u.forward(c, u.target(c))
	}
}

// Base is the upstream root URL.
func (u *Upstream) Base() string { return u.base }

func (u *Upstream) target(c fiber.Ctx) string {
	path := strings.TrimPrefix(c.Path(), u.prefix)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := u.base + path
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		target += "?" + string(q)
	}
	return target
}

func (u *Upstream) forward(c fiber.Ctx, targetURL string) error {
	log.Printf("[PROXY] %s %s -> %s (%d bytes)", c.Method(), c.Path(), targetURL, len(c.Body()))

	req, err := http.NewRequest(c.Method(), targetURL, bytes.NewReader(c.Body()))
	if err != nil {
		log.Printf("[PROXY] build request error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}
	for _, h := range passHeaders {
		if v := c.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		log.Printf("[PROXY] Error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}
	defer resp.Body.Close()

	return copyResponse(c, resp)
}

func copyResponse(c fiber.Ctx, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[PROXY] Read response error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "invalid upstream response"})
	}

	for key, values := range resp.Header {
		if len(values) > 0 {
			c.Set(key, values[0])
		}
	}

	c.Status(resp.StatusCode)
	return c.Send(data)
}

// Ping reports whether the upstream answers its liveness probe.
func (u *Upstream) Ping() error {
	resp, err := u.client.Get(u.base + "/health/live")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return "upstream status " + http.StatusText(e.Code) }
