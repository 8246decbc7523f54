package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/weather-bands-dashboard/internal/config"
	"github.com/i474232898/weather-bands-dashboard/internal/logger"
	"github.com/i474232898/weather-bands-dashboard/internal/weather"
)

// ErrInvalidSelection is returned for a city or year outside the catalog.
var ErrInvalidSelection = errors.New("invalid selection")

// BandSource computes the bands of a station for a year.
type BandSource interface {
	DailyBands(ctx context.Context, stationID string, year int) (weather.Bands, error)
}

// Chart is the live chart the controller drives.
type Chart interface {
	Replace(rows []weather.DailyStatRow)
	SetTitle(title string)
	ShowError(msg string)
	ClearError()
	Title() string
	ErrorText() string
	Spec() map[string]any
}

// Selection is the city and year currently picked in the dropdowns.
type Selection struct {
	City string `json:"city"`
	Year int    `json:"year"`
}

// SelectionChanged is the event emitted by the dropdowns.
type SelectionChanged struct {
	City string `json:"city"`
	Year int    `json:"year"`
}

// View is what the page renders.
type View struct {
	Selection Selection      `json:"selection"`
	Title     string         `json:"title"`
	NoData    bool           `json:"noData"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Spec      map[string]any `json:"spec"`
}

// Controller owns one dashboard's selection and chart. Events are handled one
// at a time: a selection change runs to completion, fetch included, before
// the next one starts.
type Controller struct {
	mu sync.Mutex

	catalog *config.Catalog
	source  BandSource
	chart   Chart
	timeout time.Duration
	log     logger.Logger

	selection Selection
	noData    bool
	updatedAt time.Time

	now func() time.Time
}

// NewController creates a controller preselected on the catalog default.
// timeout bounds every band computation; zero means no bound.
func NewController(catalog *config.Catalog, source BandSource, chart Chart, timeout time.Duration, log logger.Logger) *Controller {
	city, year := catalog.Default()
	return &Controller{
		catalog:   catalog,
		source:    source,
		chart:     chart,
		timeout:   timeout,
		log:       logger.Component(log, "dashboard"),
		selection: Selection{City: city, Year: year},
		now:       time.Now,
	}
}

// Title formats the chart title for a city and year.
func Title(city config.City, year int) string {
	return fmt.Sprintf("Weather data for %s %d", city.Title, year)
}

// Start performs the startup load of the default selection.
func (c *Controller) Start(ctx context.Context) {
	city, year := c.catalog.Default()
	if err := c.HandleSelectionChanged(ctx, SelectionChanged{City: city, Year: year}); err != nil {
		c.log.Errorf("startup selection rejected: %v", err)
	}
}

// HandleSelectionChanged is the single entry point for dropdown changes. An
// invalid selection is rejected without touching any state. Otherwise the
// selection is stored and the chart rebuilt; when the source fails the chart
// keeps its previous contents and shows an error banner instead.
func (c *Controller) HandleSelectionChanged(ctx context.Context, ev SelectionChanged) error {
	city, err := c.catalog.Resolve(ev.City, ev.Year)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.selection = Selection{City: ev.City, Year: ev.Year}
	c.update(ctx, city, ev.Year)
	return nil
}

func (c *Controller) update(ctx context.Context, city config.City, year int) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := c.log.WithFields(map[string]interface{}{
		"city":    city.Name,
		"station": city.StationID,
		"year":    year,
	})

	bands, err := c.source.DailyBands(ctx, city.StationID, year)
	if err != nil {
		log.Errorf("update failed, keeping previous chart: %v", err)
		c.chart.ShowError(fmt.Sprintf("Could not load data for %s %d: %v", city.Title, year, err))
		return
	}

	title := Title(city, year)
	rows := bands.Rows
	if bands.NoData() {
		title += " (no data)"
		rows = nil
	}

	c.chart.Replace(rows)
	c.chart.SetTitle(title)
	c.chart.ClearError()
	c.noData = bands.NoData()
	c.updatedAt = c.now()

	log.WithField("rows", len(bands.Rows)).Debug("chart updated")
}

// Selection returns the current selection.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// View renders the current state of the dashboard.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		Selection: c.selection,
		Title:     c.chart.Title(),
		NoData:    c.noData,
		Error:     c.chart.ErrorText(),
		UpdatedAt: c.updatedAt,
		Spec:      c.chart.Spec(),
	}
}
