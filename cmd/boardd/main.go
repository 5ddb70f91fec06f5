package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rinkworks/rinkmotion/internal/catalog"
	"github.com/rinkworks/rinkmotion/internal/config"
	"github.com/rinkworks/rinkmotion/internal/interp"
	"github.com/rinkworks/rinkmotion/internal/timeline"
	"github.com/rinkworks/rinkmotion/internal/ws"
)

func main() {
	// ---- Flags (config.yaml can override most) ----
	var (
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		fps        = flag.Int("fps", 60, "engine update rate")
		method     = flag.String("method", "cubic", "interpolation method: linear | cubic | hermite")
		catalogDir = flag.String("catalog", "plays", "play template directory")
		cacheSize  = flag.Int("cache-size", 1000, "interpolated frame cache capacity")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	eAddr, eFPS, eMethod, eDir, eCache := *addr, *fps, *method, *catalogDir, *cacheSize
	if cfg != nil {
		if cfg.Addr != "" {
			eAddr = cfg.Addr
		}
		if cfg.Engine.FPS > 0 {
			eFPS = cfg.Engine.FPS
		}
		if cfg.Engine.Method != "" {
			eMethod = cfg.Engine.Method
		}
		if cfg.CatalogDir != "" {
			eDir = cfg.CatalogDir
		}
		if cfg.Engine.CacheSize > 0 {
			eCache = cfg.Engine.CacheSize
		}
	}

	// ---- Engine + server state ----
	eng := timeline.New(timeline.Options{
		FPS:         eFPS,
		Method:      interp.Method(eMethod),
		CacheFrames: true,
		CacheSize:   eCache,
	})
	state := ws.NewState(eng, eFPS)

	// ---- Template catalog ----
	plays, err := catalog.Load(eDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", eDir).Msg("catalog load incomplete")
	}
	for _, p := range plays {
		state.AddPlay(p)
	}
	log.Info().Int("plays", len(plays)).Str("dir", eDir).Msg("catalog loaded")

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", state.HandleFramesWS)
	mux.HandleFunc("/control", state.HandleControlWS)
	mux.HandleFunc("/health", state.HandleHealth)
	mux.HandleFunc("/plays", state.HandlePlays)

	srv := &http.Server{
		Addr:         eAddr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go state.RunBroadcastLoop()
	go func() {
		log.Info().Str("addr", eAddr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	eng.Stop()
	state.Close()
	_ = srv.Close()
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
