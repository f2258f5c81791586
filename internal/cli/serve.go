package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/PixPMusic/gopher-footswitch/internal/actions"
	"github.com/PixPMusic/gopher-footswitch/internal/config"
	"github.com/PixPMusic/gopher-footswitch/internal/display"
	"github.com/PixPMusic/gopher-footswitch/internal/expfs"
	"github.com/PixPMusic/gopher-footswitch/internal/footswitch"
	"github.com/PixPMusic/gopher-footswitch/internal/hw"
	"github.com/PixPMusic/gopher-footswitch/internal/kvstore"
	"github.com/PixPMusic/gopher-footswitch/internal/led"
	"github.com/PixPMusic/gopher-footswitch/internal/midi"
	"github.com/PixPMusic/gopher-footswitch/internal/portal"
)

const (
	storeNamespace  = "footsw"
	simHistory      = 256
	shutdownTimeout = 2 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the foot controller",
	Long: `Start the button and exp/fs engines, the LED renderer, the status display
and the HTTP API. MIDI goes to every transport that is configured: an OS port,
a UART at 31250 baud and a USB-MIDI device. With --sim the simulated surface
can be driven through /api/sim and every send is logged.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", ":8080", "HTTP listen address")
	f.String("uart", "", "serial device for UART MIDI out")
	f.String("display", "", "serial device for the status display")
	f.String("midi-out", "", "OS MIDI output port name")
	f.Uint16("usb-vid", 0, "USB-MIDI vendor id, 0 disables USB")
	f.Uint16("usb-pid", 0, "USB-MIDI product id")
	f.Bool("sim", true, "expose the simulator routes and log every MIDI send")
	rootCmd.AddCommand(serveCmd)
}

// openBlobs opens a namespace in the data dir. A failure runs that part in memory.
func openBlobs(dir, namespace string) config.BlobStore {
	blobs, err := kvstore.NewOS(dir, namespace)
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Msg("storage unavailable, running in memory")
		return nil
	}
	return blobs
}

// openTransports opens every configured MIDI destination. One that fails to open is skipped.
func openTransports(s Settings) ([]actions.Transport, []io.Closer) {
	var (
		transports []actions.Transport
		closers    []io.Closer
	)
	add := func(t *midi.Transport, err error, what string) {
		if err != nil {
			log.Error().Err(err).Str("transport", what).Msg("MIDI transport unavailable")
			return
		}
		transports = append(transports, t)
		closers = append(closers, t)
	}

	if s.MIDIOut != "" {
		mgr := midi.NewManager()
		t, err := mgr.Open(s.MIDIOut)
		add(t, err, "port")
		closers = append(closers, closerFunc(func() error { mgr.Close(); return nil }))
	}
	if s.UART != "" {
		t, err := midi.OpenUART(s.UART)
		add(t, err, "uart")
	}
	if s.USBVID != 0 {
		t, err := midi.OpenUSB(s.USBVID, s.USBPID)
		add(t, err, "usb")
	}
	if s.Sim {
		rec := actions.NewRecorder("sim", simHistory)
		simLog := log.With().Str("component", "sim").Logger()
		rec.OnSend(func(m actions.Message) {
			simLog.Info().Stringer("msg", m).Msg("midi out")
		})
		transports = append(transports, rec)
	}
	return transports, closers
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	s := settings

	store := config.Open(openBlobs(s.DataDir, storeNamespace))
	palette := led.OpenPalette(openBlobs(s.DataDir, led.Namespace))

	transports, closers := openTransports(s)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("close transport")
			}
		}
	}()
	if len(transports) == 0 {
		log.Warn().Msg("no MIDI transport configured, sends are dropped")
	}
	dispatcher := actions.NewDispatcher(actions.NewToggleTable(), transports...)

	sim := hw.NewSim()
	renderer := led.NewRenderer(&led.FrameRecorder{}, palette)
	buttons := footswitch.New(store, dispatcher, sim, hw.Fanout{sim, renderer})
	jacks := expfs.New(store, dispatcher, sim)

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	run(buttons.Run)
	run(jacks.Run)
	run(renderer.Run)

	if s.Display != "" {
		if port, err := display.Open(s.Display); err != nil {
			log.Error().Err(err).Msg("status display unavailable")
		} else {
			defer port.Close()
			refresher := display.NewRefresher(port, store)
			store.Subscribe(refresher.Watch)
			run(refresher.Run)
		}
	}

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler := portal.NewHandler(store, buttons, jacks, renderer)
	if s.Sim {
		handler.WithSim(sim)
	}
	handler.RegisterRoutes(router)

	srv := &http.Server{Addr: s.Listen, Handler: router}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.Listen).Bool("sim", s.Sim).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown")
	}
	wg.Wait()
	log.Info().Msg("stopped")
	return serveErr
}
