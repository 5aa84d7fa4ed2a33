package main

import (
	"flag"
	"net/http"
	"riftlens-backend/lib/configutil"
	"riftlens-backend/lib/serviceutil"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type Config struct {
	Port     int            `json:"port"`
	Cors     CorsConfig     `json:"cors"`
	Summoner SummonerConfig `json:"summoner"`
}

type CorsConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	// secrets like the riot api key live in the environment, not in config
	godotenv.Load()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	mux := http.NewServeMux()

	service, err := InitSummoner(ctx, mux, cfg.Summoner, *verbose)
	if err != nil {
		serviceutil.Fatal("init summoner", err)
	}
	defer service.Close()

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Cors.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	go serviceutil.StartHttpServer(ctx, cfg.Port, handler)
	<-ctx.Done()
}
