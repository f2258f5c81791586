package portal

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PixPMusic/gopher-footswitch/internal/config"
	"github.com/PixPMusic/gopher-footswitch/internal/led"
)

type stateRequest struct {
	Bank *float64 `json:"bank" binding:"required"`
}

type ledRequest struct {
	Brightness *float64 `json:"brightness" binding:"required"`
}

type rgbRequest struct {
	Pixels []string `json:"pixels"`
	Index  *int     `json:"index"`
	Color  *string  `json:"color"`
}

// bind decodes a JSON body, shape errors are validation errors
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %v", config.ErrValidation, err)
	}
	return nil
}

func (h *Handler) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bank": h.store.CurrentBank()})
}

func (h *Handler) handleSetState(c *gin.Context) {
	var req stateRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	bank := h.banks.SetBank(int(*req.Bank))
	c.JSON(http.StatusOK, gin.H{"ok": true, "bank": bank})
}

func (h *Handler) handleGetLED(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"brightness": h.store.LEDBrightness()})
}

func (h *Handler) handleSetLED(c *gin.Context) {
	var req ledRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	h.store.SetLEDBrightness(int(*req.Brightness))
	ok(c)
}

func (h *Handler) handleGetExpFs(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ExpFsDoc(queryInt(c, "port")))
}

func (h *Handler) handleSetExpFs(c *gin.Context) {
	port := queryInt(c, "port")
	h.applyBody(c, func(data []byte) error { return h.store.SetExpFs(port, data) })
}

func (h *Handler) handleExpFsCal(c *gin.Context) {
	which, err := config.ParseCalPoint(c.Query("which"))
	if err != nil {
		h.fail(c, err)
		return
	}
	raw, p := h.cal.SaveCalibration(queryInt(c, "port"), which)
	c.JSON(http.StatusOK, gin.H{"ok": true, "raw": raw, "calMin": p.CalMin, "calMax": p.CalMax})
}

func (h *Handler) handleGetRGB(c *gin.Context) {
	colors := h.rgb.Colors()
	pixels := make([]string, len(colors))
	for i, rgb := range colors {
		pixels[i] = led.FormatHex(rgb)
	}
	c.JSON(http.StatusOK, gin.H{"pixels": pixels})
}

func (h *Handler) handleSetRGB(c *gin.Context) {
	var req rgbRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	switch {
	case req.Pixels != nil:
		colors := make([]uint32, 0, len(req.Pixels))
		for _, s := range req.Pixels {
			rgb, err := led.ParseHex(s)
			if err != nil {
				h.fail(c, err)
				return
			}
			colors = append(colors, rgb)
		}
		h.rgb.SetColors(colors)
	case req.Color != nil:
		rgb, err := led.ParseHex(*req.Color)
		if err != nil {
			h.fail(c, err)
			return
		}
		i := 0
		if req.Index != nil {
			i = *req.Index
		}
		h.rgb.SetColor(i, rgb)
	default:
		h.fail(c, fmt.Errorf("%w: pixels or color required", config.ErrValidation))
		return
	}
	ok(c)
}

func (h *Handler) handleSimSwitch(c *gin.Context) {
	h.sim.SetSwitch(queryInt(c, "btn"), c.Query("pressed") == "1")
	ok(c)
}

func (h *Handler) handleSimPort(c *gin.Context) {
	port := queryInt(c, "port")
	if v, found := c.GetQuery("tip"); found {
		h.sim.SetTip(port, v == "1")
	}
	if v, found := c.GetQuery("ring"); found {
		h.sim.SetRing(port, v == "1")
	}
	if v, found := c.GetQuery("adc"); found {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.fail(c, fmt.Errorf("%w: adc %q is not a number", config.ErrValidation, v))
			return
		}
		h.sim.SetADC(port, n)
	}
	ok(c)
}

func (h *Handler) handleSimLEDs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"on": h.sim.LEDs(), "brightness": h.sim.Brightness()})
}
