package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/blinkynode/cmd"
	"github.com/smazurov/blinkynode/internal/api"
	"github.com/smazurov/blinkynode/internal/cloud"
	"github.com/smazurov/blinkynode/internal/config"
	"github.com/smazurov/blinkynode/internal/events"
	"github.com/smazurov/blinkynode/internal/gate"
	"github.com/smazurov/blinkynode/internal/led"
	"github.com/smazurov/blinkynode/internal/logging"
	"github.com/smazurov/blinkynode/internal/loop"
	"github.com/smazurov/blinkynode/internal/metrics"
	"github.com/smazurov/blinkynode/internal/settings"
	"github.com/smazurov/blinkynode/internal/systemd"
	"github.com/smazurov/blinkynode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Device settings
	DeviceID string `help:"Device identifier (defaults to the hostname)" toml:"device.id" env:"DEVICE_ID"`

	// Cloud settings
	CloudTransport          string `help:"Cloud transport (nats, mqtt)" default:"nats" toml:"cloud.transport" env:"CLOUD_TRANSPORT"`
	NATSServer              string `help:"NATS server URL" default:"nats://127.0.0.1:4222" toml:"cloud.nats_url" env:"CLOUD_NATS_URL"`
	MQTTBroker              string `help:"MQTT broker URL" default:"tcp://127.0.0.1:1883" toml:"cloud.mqtt_broker" env:"CLOUD_MQTT_BROKER"`
	CloudUsername           string `help:"Cloud username" toml:"cloud.username" env:"CLOUD_USERNAME"`
	CloudPassword           string `help:"Cloud password" toml:"cloud.password" env:"CLOUD_PASSWORD"`
	CloudHeartbeatTimeoutMS int    `help:"Heartbeat delivery timeout in milliseconds" default:"5000" toml:"cloud.heartbeat_timeout_ms" env:"CLOUD_HEARTBEAT_TIMEOUT_MS"`

	// Loop settings
	LoopDelayMS int `help:"Delay between heartbeats in milliseconds (100-60000)" default:"1000" toml:"loop.delay_ms" env:"LOOP_DELAY_MS"`

	// LED settings
	LEDDriver string `help:"LED driver (auto, sysfs, gpiocdev, noop)" default:"auto" toml:"led.driver" env:"LED_DRIVER"`
	LEDName   string `help:"LED toggled by the loop (defaults to the board's status LED)" toml:"led.name" env:"LED_NAME"`
	LEDChip   string `help:"GPIO chip for the gpiocdev driver" toml:"led.gpio_chip" env:"LED_GPIO_CHIP"`
	LEDLine   int    `help:"GPIO line offset for the gpiocdev driver" toml:"led.gpio_line" env:"LED_GPIO_LINE"`

	// Strip settings
	StripEnabled        bool   `help:"Drive an RGB strip" default:"false" toml:"strip.enabled" env:"STRIP_ENABLED"`
	StripDriver         string `help:"Strip driver (adalight, spidev, noop)" default:"adalight" toml:"strip.driver" env:"STRIP_DRIVER"`
	StripDevice         string `help:"Serial port of the Adalight bridge or spidev device" default:"/dev/ttyUSB0" toml:"strip.device" env:"STRIP_DEVICE"`
	StripBaudRate       int    `help:"Serial baud rate" default:"115200" toml:"strip.baud_rate" env:"STRIP_BAUD_RATE"`
	StripPixels         int    `help:"Number of pixels" default:"1" toml:"strip.pixels" env:"STRIP_PIXELS"`
	StripPolarityFix    string `help:"Clear the SPI output polarity bit at startup (auto applies it to spidev strips on boards that need it; on, off)" default:"auto" toml:"strip.polarity_fix" env:"STRIP_POLARITY_FIX"`
	StripControllerBase string `help:"SPI controller base address, overrides the board profile" toml:"strip.controller_base" env:"STRIP_CONTROLLER_BASE"`

	// Server settings
	ServerEnabled  bool   `help:"Serve the local HTTP API" default:"true" toml:"server.enabled" env:"SERVER_ENABLED"`
	Port           string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	ServiceControl bool   `help:"Expose systemd unit status and restart via D-Bus" default:"false" toml:"server.service_control" env:"SERVER_SERVICE_CONTROL"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingLoop     string `help:"Control loop logging level" toml:"logging.loop" env:"LOGGING_LOOP"`
	LoggingCloud    string `help:"Cloud client logging level" toml:"logging.cloud" env:"LOGGING_CLOUD"`
	LoggingSettings string `help:"Settings logging level" toml:"logging.settings" env:"LOGGING_SETTINGS"`
	LoggingLED      string `help:"LED logging level" toml:"logging.led" env:"LOGGING_LED"`
	LoggingAPI      string `help:"API logging level" toml:"logging.api" env:"LOGGING_API"`
}

func loggingConfig(opts *Options, fromFile logging.Config) logging.Config {
	modules := make(map[string]string, len(fromFile.Modules))
	for k, v := range fromFile.Modules {
		modules[k] = v
	}
	for module, level := range map[string]string{
		"loop":     opts.LoggingLoop,
		"cloud":    opts.LoggingCloud,
		"settings": opts.LoggingSettings,
		"led":      opts.LoggingLED,
		"api":      opts.LoggingAPI,
	} {
		if level != "" {
			modules[module] = level
		}
	}
	return logging.Config{
		Level:   opts.LoggingLevel,
		Format:  opts.LoggingFormat,
		Modules: modules,
	}
}

// newStrip builds the strip driver named by strip.driver.
func newStrip(opts *Options, logger *slog.Logger) (led.Strip, error) {
	switch opts.StripDriver {
	case "", "adalight":
		return led.NewAdalight(led.AdalightConfig{
			Device:   opts.StripDevice,
			BaudRate: opts.StripBaudRate,
			Pixels:   opts.StripPixels,
		}), nil
	case "spidev":
		return led.NewSPIStrip(led.SPIStripConfig{
			Device: opts.StripDevice,
			Pixels: opts.StripPixels,
		}), nil
	case "noop":
		return led.NewNoopStrip(opts.StripPixels, logger), nil
	default:
		return nil, fmt.Errorf("unknown strip driver %q", opts.StripDriver)
	}
}

// polarityFix resolves the strip polarity setting against the board profile.
// The patch targets the SoC SPI controller, so auto only applies it when the
// strip hangs off that controller through spidev.
func polarityFix(opts *Options, board led.Board) (*led.PolarityFix, error) {
	base := board.SPIControllerBase
	if opts.StripControllerBase != "" {
		parsed, err := strconv.ParseUint(opts.StripControllerBase, 0, 64)
		if err != nil {
			return nil, err
		}
		base = parsed
	}

	switch opts.StripPolarityFix {
	case "off":
		return nil, nil
	case "on":
		if base == 0 {
			return nil, errors.New("strip.polarity_fix=on needs strip.controller_base on this board")
		}
	default:
		if opts.StripDriver != "spidev" {
			return nil, nil
		}
		if !board.NeedsPolarityFix() && opts.StripControllerBase == "" {
			return nil, nil
		}
	}
	return &led.PolarityFix{ControllerBase: base}, nil
}

// reloadOnHangup re-reads the config file on SIGHUP (systemctl reload).
func reloadOnHangup(ctx context.Context, watcher *config.Watcher[config.Runtime], logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			logger.Info("SIGHUP received, reloading config")
			watcher.Reload()
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(loggingConfig(opts, config.LoadLoggingConfig(opts.Config)))
		logger := logging.GetLogger("main")
		logger.Info("Starting blinkynode", "version", version.Long())

		if opts.DeviceID == "" {
			hostname, err := os.Hostname()
			if err != nil {
				logger.Error("No device id configured and hostname unavailable", "error", err)
				os.Exit(1)
			}
			opts.DeviceID = hostname
		}

		eventBus := events.New()
		ledLogger := logging.GetLogger("led")

		board := led.DetectBoard()
		ledOpts := led.ControllerOptions{
			Driver:   opts.LEDDriver,
			Name:     opts.LEDName,
			GPIOChip: opts.LEDChip,
			GPIOLine: opts.LEDLine,
		}
		ledController, err := led.New(ledOpts, board, ledLogger)
		if err != nil {
			logger.Error("Failed to create LED controller", "error", err)
			os.Exit(1)
		}

		indicatorOpts := led.IndicatorOptions{
			Controller: ledController,
			LED:        ledOpts.LEDName(board),
			Bus:        eventBus,
			Logger:     ledLogger,
		}
		if opts.StripEnabled {
			strip, stripErr := newStrip(opts, ledLogger)
			if stripErr != nil {
				logger.Error("Invalid strip settings", "error", stripErr)
				os.Exit(1)
			}
			indicatorOpts.Strip = strip
			fix, fixErr := polarityFix(opts, board)
			if fixErr != nil {
				logger.Error("Invalid strip polarity settings", "error", fixErr)
				os.Exit(1)
			}
			indicatorOpts.Polarity = fix
		}
		indicator := led.NewIndicator(indicatorOpts)

		var ledManager *led.Manager
		if board.SystemLED != "" && board.SystemLED != indicatorOpts.LED {
			ledManager = led.NewManager(ledController, board.SystemLED, eventBus, ledLogger)
		}

		settingsLogger := logging.GetLogger("settings")
		store := settings.NewStore(settings.DefaultLoopDelayMS)
		validator := settings.NewValidator(store, eventBus, settingsLogger)
		if opts.LoopDelayMS != settings.DefaultLoopDelayMS {
			validator.ApplyFrom(settings.SourceConfig, settings.KeyLoopDelayMS, settings.Int(int64(opts.LoopDelayMS)))
		}

		client, err := cloud.New(cloud.Config{
			Transport:  opts.CloudTransport,
			DeviceID:   opts.DeviceID,
			NATSURL:    opts.NATSServer,
			MQTTBroker: opts.MQTTBroker,
			Username:   opts.CloudUsername,
			Password:   opts.CloudPassword,
		}, logging.GetLogger("cloud"))
		if err != nil {
			logger.Error("Invalid cloud settings", "error", err)
			os.Exit(1)
		}

		connected := gate.New()
		client.OnConnect(connected.Signal)

		controlLoop := loop.New(loop.Options{
			DeviceID:         opts.DeviceID,
			Client:           client,
			Indicator:        indicator,
			Gate:             connected,
			Store:            store,
			Settings:         validator.Apply,
			HeartbeatTimeout: time.Duration(opts.CloudHeartbeatTimeoutMS) * time.Millisecond,
			Bus:              eventBus,
			Logger:           logging.GetLogger("loop"),
		})

		stateNames := make([]string, len(loop.States))
		for i, s := range loop.States {
			stateNames[i] = string(s)
		}
		recorder := metrics.NewRecorder(eventBus, stateNames)
		notifier := systemd.NewNotifier(eventBus, logging.GetLogger("systemd"))

		watcher := config.NewConfigWatcher(opts.Config, config.LoadRuntime, logging.GetLogger("config"))
		var fileDelay any
		if rt, rtErr := config.LoadRuntime(opts.Config); rtErr == nil {
			fileDelay = rt.LoopDelayMS
		}
		fileSync := settings.NewFileSync(validator, fileDelay, settingsLogger)
		watcher.OnReload(func(rt config.Runtime) {
			logging.Initialize(loggingConfig(opts, rt.Logging))
			fileSync.Reload(rt.LoopDelayMS)
		})

		ctx, cancel := context.WithCancel(context.Background())
		loopDone := make(chan struct{})

		var server *api.Server
		var serviceManager *systemd.Manager

		hooks.OnStart(func() {
			defer close(loopDone)

			recorder.Start(store.DelayMS())
			notifier.Start(ctx)
			if ledManager != nil {
				ledManager.Start()
			}

			if _, statErr := os.Stat(opts.Config); statErr == nil {
				if watchErr := watcher.Start(); watchErr != nil {
					logger.Warn("Failed to watch config file", "error", watchErr)
				}
				go reloadOnHangup(ctx, watcher, logger)
			}

			if opts.ServerEnabled {
				apiOpts := &api.Options{
					AuthUsername:      opts.AuthUsername,
					AuthPassword:      opts.AuthPassword,
					DeviceID:          opts.DeviceID,
					Board:             board.Name,
					Loop:              controlLoop,
					Settings:          validator,
					Cloud:             client,
					Indicator:         indicator,
					LEDController:     ledController,
					StatusLED:         indicatorOpts.LED,
					EventBus:          eventBus,
					PrometheusHandler: metrics.Handler(),
				}
				if opts.ServiceControl {
					mgr, dbusErr := systemd.NewManager(ctx, systemd.ServiceName, false)
					if dbusErr != nil {
						logger.Warn("systemd D-Bus unavailable, service routes disabled", "error", dbusErr)
					} else {
						serviceManager = mgr
						apiOpts.Service = mgr
					}
				}
				server = api.NewServer(apiOpts)

				go func() {
					logger.Info("Starting HTTP server", "port", opts.Port)
					if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
						logger.Error("Failed to start HTTP server", "error", startErr)
						os.Exit(1)
					}
				}()
			}

			if runErr := controlLoop.Run(ctx); runErr != nil {
				logger.Error("Control loop failed", "error", runErr, "code", loop.CodeOf(runErr))
				notifier.Stopping()
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			notifier.Stopping()
			cancel()

			select {
			case <-loopDone:
			case <-time.After(5 * time.Second):
				logger.Warn("Control loop did not stop in time")
			}

			if server != nil {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}
			if serviceManager != nil {
				serviceManager.Close()
			}
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}

			client.Close()
			if ledManager != nil {
				ledManager.Stop()
			}
			if closeErr := indicator.Close(); closeErr != nil {
				logger.Warn("Error releasing indicator", "error", closeErr)
			}
			notifier.Stop()
			recorder.Stop()
		})
	})

	cli.Root().Version = version.Long()
	cli.Root().AddCommand(cmd.CreateSetCmd())
	cli.Root().AddCommand(cmd.CreateBrokerCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Run()
}
