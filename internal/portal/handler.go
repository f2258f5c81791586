// Package portal serves the JSON configuration API.
package portal

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
	"github.com/PixPMusic/gopher-footswitch/internal/hw"
)

// BankSwitcher changes the current bank, footswitch.Engine implements it
type BankSwitcher interface {
	SetBank(n int) int
}

// Calibrator captures a jack calibration end, expfs.Engine implements it
type Calibrator interface {
	SaveCalibration(port int, which config.CalPoint) (int, config.ExpFsPort)
}

// Palette is the LED colour table, led.Renderer implements it
type Palette interface {
	Colors() [config.NumButtons]uint32
	SetColor(i int, rgb uint32)
	SetColors(colors []uint32)
}

// Handler holds everything the API routes act on
type Handler struct {
	store *config.Store
	banks BankSwitcher
	cal   Calibrator
	rgb   Palette
	sim   *hw.Sim
	log   zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(store *config.Store, banks BankSwitcher, cal Calibrator, rgb Palette) *Handler {
	return &Handler{
		store: store,
		banks: banks,
		cal:   cal,
		rgb:   rgb,
		log:   log.With().Str("component", "portal").Logger(),
	}
}

// WithSim enables the simulator control routes on sim
func (h *Handler) WithSim(sim *hw.Sim) *Handler {
	h.sim = sim
	return h
}

// RegisterRoutes registers every API route
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/meta", h.handleMeta)
		api.GET("/layout", h.handleGetLayout)
		api.POST("/layout", h.handleSetLayout)
		api.GET("/bank", h.handleGetBank)
		api.POST("/bank", h.handleSetBank)
		api.GET("/button", h.handleGetButton)
		api.POST("/button", h.handleSetButton)
		api.GET("/state", h.handleGetState)
		api.POST("/state", h.handleSetState)
		api.GET("/led", h.handleGetLED)
		api.POST("/led", h.handleSetLED)
		api.GET("/expfs", h.handleGetExpFs)
		api.POST("/expfs", h.handleSetExpFs)
		api.POST("/expfs_cal", h.handleExpFsCal)
		api.GET("/rgb", h.handleGetRGB)
		api.POST("/rgb", h.handleSetRGB)

		if h.sim != nil {
			sim := api.Group("/sim")
			sim.POST("/switch", h.handleSimSwitch)
			sim.POST("/port", h.handleSimPort)
			sim.GET("/leds", h.handleSimLEDs)
		}
	}
}

// queryInt reads an index parameter, anything missing or unparsable is 0
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, config.ErrValidation) {
		status = http.StatusBadRequest
	}
	h.log.Warn().Err(err).Str("path", c.Request.URL.Path).Int("status", status).Msg("request rejected")
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

// applyBody hands the raw request body to a store setter
func (h *Handler) applyBody(c *gin.Context, set func(data []byte) error) {
	data, err := c.GetRawData()
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := set(data); err != nil {
		h.fail(c, err)
		return
	}
	ok(c)
}

func (h *Handler) handleMeta(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Meta())
}

func (h *Handler) handleGetLayout(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Layout())
}

func (h *Handler) handleSetLayout(c *gin.Context) {
	h.applyBody(c, h.store.SetLayout)
}

func (h *Handler) handleGetBank(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Bank(queryInt(c, "bank")))
}

func (h *Handler) handleSetBank(c *gin.Context) {
	bank := queryInt(c, "bank")
	h.applyBody(c, func(data []byte) error { return h.store.SetBank(bank, data) })
}

func (h *Handler) handleGetButton(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ButtonDoc(queryInt(c, "bank"), queryInt(c, "btn")))
}

func (h *Handler) handleSetButton(c *gin.Context) {
	bank, btn := queryInt(c, "bank"), queryInt(c, "btn")
	h.applyBody(c, func(data []byte) error { return h.store.SetButton(bank, btn, data) })
}
