package httpapi

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-bands-dashboard/internal/config"
	"github.com/i474232898/weather-bands-dashboard/internal/dashboard"
	"github.com/i474232898/weather-bands-dashboard/internal/export"
	"github.com/i474232898/weather-bands-dashboard/internal/logger"
	"github.com/i474232898/weather-bands-dashboard/internal/weather"
)

//go:embed templates/dashboard.html
var dashboardHTML string

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardHTML))

// Deps are the collaborators the handlers need.
type Deps struct {
	Catalog      *config.Catalog
	Bands        dashboard.BandSource
	Sessions     *dashboard.Registry
	FetchTimeout time.Duration
	Log          logger.Logger
}

// ErrorHandler is the centralized fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// newValidator registers the catalog-aware "city" and "year" tags.
func newValidator(catalog *config.Catalog) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("city", func(fl validator.FieldLevel) bool {
		return catalog.HasCity(fl.Field().String())
	})
	_ = v.RegisterValidation("year", func(fl validator.FieldLevel) bool {
		return catalog.HasYear(int(fl.Field().Int()))
	})
	return v
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	h := &handlers{deps: d, validate: newValidator(d.Catalog), log: logger.Component(d.Log, "http")}

	app.Get("/", h.page)

	v1 := app.Group("/api/v1")
	v1.Get("/catalog", h.catalog)

	v1.Post("/sessions", h.createSession)
	v1.Get("/sessions/:id", h.getSession)
	v1.Post("/sessions/:id/selection", h.changeSelection)
	v1.Delete("/sessions/:id", h.deleteSession)

	v1.Get("/bands", h.bands)
	v1.Get("/bands/export", h.exportBands)
}

type handlers struct {
	deps     Deps
	validate *validator.Validate
	log      logger.Logger
}

// selectionQuery identifies a city and year, from a JSON body or a query string.
type selectionQuery struct {
	City string `json:"city" validate:"required,city"`
	Year int    `json:"year" validate:"required,year"`
}

func (q *selectionQuery) bindQuery(c *fiber.Ctx) error {
	q.City = c.Query("city")
	yearStr := c.Query("year")
	if q.City == "" || yearStr == "" {
		return errors.New("city and year query parameters are required")
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return fmt.Errorf("invalid year %q", yearStr)
	}
	q.Year = year
	return nil
}

type pageData struct {
	Cities      []config.City
	Years       []int
	DefaultCity string
	DefaultYear int
}

func (h *handlers) page(c *fiber.Ctx) error {
	city, year := h.deps.Catalog.Default()
	data := pageData{
		Cities:      h.deps.Catalog.Cities(),
		Years:       h.deps.Catalog.Years(),
		DefaultCity: city,
		DefaultYear: year,
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, data); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render dashboard")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *handlers) catalog(c *fiber.Ctx) error {
	city, year := h.deps.Catalog.Default()
	return c.JSON(fiber.Map{
		"cities":  h.deps.Catalog.Cities(),
		"years":   h.deps.Catalog.Years(),
		"default": dashboard.Selection{City: city, Year: year},
	})
}

func (h *handlers) createSession(c *fiber.Ctx) error {
	id, ctrl := h.deps.Sessions.Create(c.UserContext())
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session": id,
		"view":    ctrl.View(),
	})
}

func (h *handlers) session(c *fiber.Ctx) (*dashboard.Controller, error) {
	ctrl, err := h.deps.Sessions.Get(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return ctrl, nil
}

func (h *handlers) getSession(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(ctrl.View())
}

func (h *handlers) changeSelection(c *fiber.Ctx) error {
	ctrl, err := h.session(c)
	if err != nil {
		return err
	}

	var req selectionQuery
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid selection body")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ev := dashboard.SelectionChanged{City: req.City, Year: req.Year}
	if err := ctrl.HandleSelectionChanged(c.UserContext(), ev); err != nil {
		if errors.Is(err, dashboard.ErrInvalidSelection) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(ctrl.View())
}

func (h *handlers) deleteSession(c *fiber.Ctx) error {
	if err := h.deps.Sessions.Delete(c.Params("id")); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// loadBands resolves the query and computes the bands under the fetch timeout.
func (h *handlers) loadBands(c *fiber.Ctx) (config.City, weather.Bands, error) {
	var q selectionQuery
	if err := q.bindQuery(c); err != nil {
		return config.City{}, weather.Bands{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(q); err != nil {
		return config.City{}, weather.Bands{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	city, err := h.deps.Catalog.Resolve(q.City, q.Year)
	if err != nil {
		return config.City{}, weather.Bands{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	if h.deps.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deps.FetchTimeout)
		defer cancel()
	}

	bands, err := h.deps.Bands.DailyBands(ctx, city.StationID, q.Year)
	if err != nil {
		h.log.Errorf("bands for %s %d: %v", city.Name, q.Year, err)
		return config.City{}, weather.Bands{}, fiber.NewError(fiber.StatusBadGateway, "failed to fetch station data")
	}
	return city, bands, nil
}

func (h *handlers) bands(c *fiber.Ctx) error {
	city, bands, err := h.loadBands(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"city":  city,
		"title": dashboard.Title(city, bands.Year),
		"bands": bands,
	})
}

func (h *handlers) exportBands(c *fiber.Ctx) error {
	city, bands, err := h.loadBands(c)
	if err != nil {
		return err
	}

	data, err := export.BandsWorkbook(dashboard.Title(city, bands.Year), bands)
	if err != nil {
		h.log.Errorf("export %s %d: %v", city.Name, bands.Year, err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to build workbook")
	}

	c.Attachment(fmt.Sprintf("%s-%d.xlsx", city.StationID, bands.Year))
	return c.Send(data)
}
