package main

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"rakshak/internal/alert"
	"rakshak/internal/bridge"
	"rakshak/internal/config"
	"rakshak/internal/geo"
	"rakshak/internal/intent"
	"rakshak/internal/ipc"
	"rakshak/internal/kb"
	"rakshak/internal/respond"
	"rakshak/internal/session"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "", "Config file path (YAML)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded config", "data_dir", cfg.DataDir, "floor", cfg.ConfidenceFloor)

	base, err := kb.Load(cfg.DataDir)
	if err != nil {
		log.Error("Failed to load knowledge base", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded knowledge base",
		"categories", len(base.Phrases),
		"shelters", len(base.Shelters),
		"locations", len(base.Locations))

	matcher, err := intent.NewMatcher(base, intent.Options{
		ConfidenceFloor:    cfg.ConfidenceFloor,
		MaxUtteranceLength: cfg.MaxUtteranceLength,
	})
	if err != nil {
		log.Error("Failed to build phrase index", "err", err)
		os.Exit(1)
	}

	resolver := geo.NewResolver(base)
	composer := respond.NewComposer(respond.Options{
		SuggestOnLowConfidence: cfg.SuggestOnLowConfidence,
	})
	alerts := alert.NewDispatcher(log.Default(), cfg.SMSEnabled, cfg.SMSContacts)

	co := session.NewCoordinator(matcher, resolver, composer, alerts, log.Default(), session.Config{
		NearestShelterCount: cfg.NearestShelterCount,
		ReferenceLocation:   cfg.ReferenceLocation(),
	})
	co.OnSessionEnd(func() {
		log.Info("Session end signal emitted")
	})

	srv, err := ipc.StartServer(cfg.SocketPath, controlHandler(co))
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Debug("Loaded control socket", "path", cfg.SocketPath)

	if cfg.BusURL != "" {
		br := bridge.New(cfg.BusURL, 2, co, log.Default())
		go func() {
			if err := br.Run(); err != nil {
				log.Error("Bridge stopped", "err", err)
			}
		}()
	}

	log.Info("Boot up - successful")

	select {}
}

func controlHandler(co *session.Coordinator) ipc.Handler {
	return func(req ipc.Request) ipc.Response {
		switch req.Cmd {
		case "start":
			if err := co.Start(); err != nil {
				return ipc.Response{Error: err.Error()}
			}
			return ipc.Response{OK: true, Status: co.Phase().String()}

		case "stop":
			if err := co.Stop(); err != nil {
				return ipc.Response{Error: err.Error()}
			}
			return ipc.Response{OK: true, Status: co.Phase().String()}

		case "status":
			return ipc.Response{OK: true, Status: co.Phase().String()}

		case "say":
			if co.Phase() == session.Idle {
				if err := co.Start(); err != nil {
					return ipc.Response{Error: err.Error()}
				}
			}
			payload, err := co.HandleUtterance(req.Text)
			if err != nil {
				return ipc.Response{Error: err.Error()}
			}
			data, err := json.Marshal(payload)
			if err != nil {
				return ipc.Response{Error: err.Error()}
			}
			return ipc.Response{OK: true, Status: co.Phase().String(), Payload: data}

		default:
			log.Warn("Unknown command", "cmd", req.Cmd)
			return ipc.Response{Error: "unknown command: " + req.Cmd}
		}
	}
}
