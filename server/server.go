// Package server exposes résumé generation over HTTP: the CV JSON goes in, the PDF comes
// back as a download.
package server

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ByLCY/papyrus-cv/assets"
	"github.com/ByLCY/papyrus-cv/cv"
	"github.com/ByLCY/papyrus-cv/resume"
	"github.com/ByLCY/papyrus-cv/style"
)

// HeaderRequestID carries the per-request id.
const HeaderRequestID = "X-Request-ID"

// Generator is the part of resume.Generator the handlers need.
type Generator interface {
	Generate(ctx context.Context, req resume.Request) (*resume.Document, error)
}

// Options configures the HTTP app.
type Options struct {
	BodyLimitMB int
	Variant     style.Variant // used when the request has no ?variant=
	Locale      style.Locale  // used when the request has no ?locale=
	// PhotoHosts lists the hosts ?photo= may point at over https. Local image paths
	// below the assets dir are always accepted.
	PhotoHosts []string
	Logger     zerolog.Logger
}

// Handler serves the résumé endpoints.
type Handler struct {
	gen  Generator
	opts Options
}

// NewHandler wraps gen.
func NewHandler(gen Generator, opts Options) *Handler {
	if opts.Variant == "" {
		opts.Variant = style.Plain
	}
	if opts.Locale == "" {
		opts.Locale = style.EN
	}
	return &Handler{gen: gen, opts: opts}
}

// New builds the fiber app with all routes registered.
func New(gen Generator, opts Options) *fiber.App {
	limit := opts.BodyLimitMB
	if limit <= 0 {
		limit = 4
	}
	app := fiber.New(fiber.Config{
		AppName:               "papyrus-cv",
		BodyLimit:             limit << 20,
		DisableStartupMessage: true,
	})
	h := NewHandler(gen, opts)
	app.Use(h.requestID)
	app.Get("/healthz", h.Health)
	app.Post("/api/cv", h.GenerateCV)
	return app
}

func (h *Handler) requestID(c *fiber.Ctx) error {
	id := c.Get(HeaderRequestID)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set(HeaderRequestID, id)
	c.Locals("requestID", id)
	return c.Next()
}

func (h *Handler) logger(c *fiber.Ctx) zerolog.Logger {
	id, _ := c.Locals("requestID").(string)
	return h.opts.Logger.With().Str("request_id", id).Logger()
}

// Health reports liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// GenerateCV handles POST /api/cv?variant=&locale=&photo=.
func (h *Handler) GenerateCV(c *fiber.Ctx) error {
	log := h.logger(c)

	variant := h.opts.Variant
	if q := c.Query("variant"); q != "" {
		v, err := style.ParseVariant(q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		variant = v
	}
	locale := h.opts.Locale
	if q := c.Query("locale"); q != "" {
		l, err := style.ParseLocale(q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		locale = l
	}

	photo := strings.TrimSpace(c.Query("photo"))
	if photo != "" && !h.photoAllowed(photo) {
		log.Warn().Str("photo", photo).Msg("photo reference rejected")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo must be a local image path or an https URL on an allowed host"})
	}

	data, err := cv.Decode(c.Body())
	if err != nil {
		var verr *cv.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid cv", "fields": verr.Errors})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}

	doc, err := h.gen.Generate(c.UserContext(), resume.Request{
		CV:              *data,
		Variant:         variant,
		Locale:          locale,
		ProfileImageURL: photo,
	})
	if err != nil {
		log.Error().Err(err).Str("variant", string(variant)).Str("locale", string(locale)).Msg("generation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "generation failed"})
	}

	log.Info().
		Str("file", doc.Filename).
		Int("pages", doc.Layout.PageCount()).
		Msg("cv generated")
	c.Attachment(doc.Filename)
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(doc.Bytes)
}

// photoAllowed accepts local image paths and https URLs whose host is in PhotoHosts.
func (h *Handler) photoAllowed(ref string) bool {
	if assets.IsLocalImage(ref) {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range h.opts.PhotoHosts {
		if host != "" && host == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}
