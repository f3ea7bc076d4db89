// Package main provides the entrypoint for the bikenavi API server.
package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/api"
	"github.com/bikenavi/bikenavi/internal/api/middleware"
	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/database"
	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/featureflags"
	"github.com/bikenavi/bikenavi/internal/gbfs"
	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
	"github.com/bikenavi/bikenavi/internal/guidance"
	"github.com/bikenavi/bikenavi/internal/guidance/mapbox"
	"github.com/bikenavi/bikenavi/internal/metrics"
	"github.com/bikenavi/bikenavi/internal/navigation"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
	"github.com/bikenavi/bikenavi/internal/routing"
	"github.com/bikenavi/bikenavi/internal/telemetry"
	"github.com/bikenavi/bikenavi/internal/weight"
	"github.com/bikenavi/bikenavi/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "bikenavi-api"

	env := getEnvOrDefault("APP_ENV", "development")
	log := newLogger(serviceName, env)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", env).
		Msg("starting bikenavi API")

	port := getEnvOrDefault("APP_PORT", "8080")
	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version, env)
	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	searchMetrics := metrics.New()

	// Weight model and road graph
	model, err := weight.NewModel(weight.Config{
		Version:          weight.Version(os.Getenv("WEIGHT_MODEL_VERSION")),
		RoadClassPenalty: os.Getenv("WEIGHT_ROAD_CLASS_PENALTY") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid weight model configuration")
	}

	g, graphSource, err := loadGraph(getEnvOrDefault("GRAPH_PATH", "data/graph.json.zst"), model, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load road graph")
	}

	// Storage
	var pool *pgxpool.Pool
	if dbConfig := database.ConfigFromEnv(); dbConfig.Enabled() {
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	} else {
		log.Warn().Msg("no database configured, using in-memory repositories")
	}

	parkingRepo, parkings, err := loadParkings(ctx, pool, os.Getenv("PARKINGS_PATH"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load parkings")
	}

	engine, err := routing.NewEngine(routing.EngineConfig{
		Graph:    g,
		Parkings: facility.NewParkingMatcher(parkings),
		Observer: searchMetrics,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create route engine")
	}

	// Share-cycle feeds
	registry := resilience.NewRegistry()
	feeds := gbfs.DefaultFeeds()
	if path := os.Getenv("GBFS_FEEDS_PATH"); path != "" {
		feeds, err = gbfs.LoadFeedsFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to load gbfs feeds")
		}
	}
	var store *gbfs.Store
	if dir := os.Getenv("GBFS_STORE_DIR"); dir != "" {
		store, err = gbfs.OpenStore(dir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to open gbfs store")
		}
		defer store.Close()
	}
	stations := gbfs.NewClient(gbfs.ClientConfig{
		Feeds:    feeds,
		Registry: registry,
		Observer: providerMetrics,
		Store:    store,
		Area:     &geo.KyotoServiceArea,
		Logger:   log,
	})
	go stations.Initialize(ctx)

	// Station status refresh runs against the client the API serves from.
	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfigFromEnv(),
		Refresher: stations,
		Observer:  providerMetrics,
		Logger:    log,
	})
	closeRefresh, err := startRefresh(refreshCtx, refreshJob, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start station refresh")
	}
	defer closeRefresh()

	// Voice guidance
	voiceLanguage := getEnvOrDefault("VOICE_LANGUAGE", "en")
	phrases, err := guidance.PhrasebookFor(voiceLanguage)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid voice language")
	}
	generator := guidance.NewGenerator(phrases)

	mapboxToken := os.Getenv("MAPBOX_ACCESS_TOKEN")
	var provider guidance.Provider
	if mapboxToken != "" {
		provider = mapbox.NewClient(mapbox.ClientConfig{
			AccessToken: mapboxToken,
			Language:    voiceLanguage,
			Registry:    registry,
			Observer:    providerMetrics,
			Logger:      log,
		})
	}
	instructions, err := guidance.NewSource(os.Getenv("INSTRUCTION_SOURCE"), generator, provider)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid instruction source")
	}

	// Feature flags
	var flagRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if pool != nil {
		flagRepo = featureflags.NewPostgresRepository(pool)
	}
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})

	cacheTTL := navigation.DefaultCacheTTL
	if d, err := time.ParseDuration(os.Getenv("ROUTE_CACHE_TTL")); err == nil && d > 0 {
		cacheTTL = d
	}
	nav := navigation.NewService(navigation.ServiceConfig{
		Router:       engine,
		Stations:     stations,
		Instructions: instructions,
		Generator:    generator,
		Flags:        flags,
		Area:         &geo.KyotoServiceArea,
		CacheTTL:     cacheTTL,
		Logger:       log,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Navigation:  nav,
		Engine:      engine,
		Stations:    stations,
		Parkings:    parkingRepo,
		Flags:       flags,
		Registry:    registry,
		Model:       model,
		Refresh:     refreshJob,
		GraphSource: graphSource,
		Area:        geo.KyotoServiceArea,
		Settings: models.DebugConfig{
			GraphSource:       graphSource,
			InstructionSource: instructions.Name(),
			MapboxTokenSet:    mapboxToken != "",
			VoiceLanguage:     phrases.Language(),
			Operators:         stations.Operators(),
			CacheTTLSeconds:   cacheTTL.Seconds(),
		},
		HTTPMetrics: httpMetrics,
		Metrics:     searchMetrics,
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",
		Debug:       getEnvOrDefault("DEBUG_ENDPOINTS", boolString(env == "development")) == "true",
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopRefresh()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newLogger(serviceName, env string) zerolog.Logger {
	var base zerolog.Logger
	if env == "development" {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		base = zerolog.New(os.Stdout)
	}
	return base.With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
}

// loadGraph loads the snapshot at path, or the demo graph when the file does
// not exist. A present but invalid snapshot is an error.
func loadGraph(path string, model *weight.Model, log zerolog.Logger) (*graph.Graph, string, error) {
	g, err := graph.Load(path, model)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("graph snapshot not found, serving demo graph")
		g, err = graph.Demo(model)
		return g, "demo", err
	}
	if err != nil {
		return nil, "", err
	}
	return g, path, nil
}

// loadParkings seeds the parking repository from the YAML file, or the
// built-in Kyoto seed when path is empty, and returns the lots used for
// nearest-parking matching.
func loadParkings(ctx context.Context, pool *pgxpool.Pool, path string, log zerolog.Logger) (facility.Repository, []facility.Parking, error) {
	var (
		seed []facility.Parking
		err  error
	)
	if path != "" {
		seed, err = facility.LoadParkingsFile(path)
	} else {
		seed, err = facility.KyotoParkings()
	}
	if err != nil {
		return nil, nil, err
	}

	if pool == nil {
		log.Info().Int("parkings", len(seed)).Msg("parkings loaded")
		return facility.NewInMemoryRepository(seed...), seed, nil
	}

	repo := facility.NewPostgresRepository(pool)
	for _, p := range seed {
		if err := repo.Upsert(ctx, p); err != nil {
			return nil, nil, err
		}
	}
	parkings, err := repo.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("parkings", len(parkings)).Int("seeded", len(seed)).Msg("parkings loaded")
	return repo, parkings, nil
}

// startRefresh triggers job from the Pub/Sub subscription named by
// PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION, or from a ticker when none is
// configured. The returned function releases the subscription client.
func startRefresh(ctx context.Context, job *worker.RefreshJob, log zerolog.Logger) (func(), error) {
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID == "" || subscription == "" {
		log.Info().
			Dur("interval", job.Interval()).
			Msg("no pubsub subscription configured, refreshing station status on a ticker")
		go job.RunEvery(ctx)
		return func() {}, nil
	}

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		RefreshJob:       job,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}
	go func() {
		if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("pubsub handler stopped")
		}
	}()
	return func() {
		if err := handler.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close pubsub client")
		}
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
