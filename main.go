package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"keytrace-go/internal/config"
	"keytrace-go/internal/database"
	"keytrace-go/internal/enrollment"
	logger "keytrace-go/internal/logging"
	"keytrace-go/internal/matcher"
	"keytrace-go/internal/models"
	"keytrace-go/internal/monitor"
	"keytrace-go/internal/router"
)

func main() {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	// A temporary console logger covers startup until the configured logger
	// is available.
	bootLog, err := zap.NewDevelopment()
	if err != nil {
		panic("failed to initialize bootstrap logger: " + err.Error())
	}

	if err := config.Init(".", bootLog); err != nil {
		bootLog.Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := logger.Init(".", config.Conf.Logging)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	// Initialize Database
	database.Init(log)

	// Load enrollment exercises at startup
	exercises, err := models.LoadExerciseSet(config.Conf.Enrollment.ExerciseFile)
	if err != nil {
		log.Fatal("Failed to load enrollment exercises", zap.Error(err))
	}

	// Engine components
	store := matcher.NewCachedStore(config.Conf.Matching.TemplateCacheTTL)
	match := matcher.New(store, matcher.Config{
		MinSampleKeystrokes: config.Conf.Matching.MinSampleKeystrokes,
		HighConfidence:      config.Conf.Matching.HighConfidence,
		MediumConfidence:    config.Conf.Matching.MediumConfidence,
	})
	enrollManager := enrollment.NewManager(exercises, config.Conf.Enrollment.MinTotalKeystrokes)

	aggregator := monitor.NewAggregator(time.Duration(config.Conf.Monitoring.WindowMinutes) * time.Minute)
	hub := monitor.NewHub(log)
	poller := monitor.NewPoller(aggregator, hub,
		time.Duration(config.Conf.Monitoring.PollIntervalSeconds)*time.Second, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	// Setup router, passing the logger to it
	r := router.Setup(log, router.Deps{
		Store:      store,
		Matcher:    match,
		Enrollment: enrollManager,
		Aggregator: aggregator,
		Poller:     poller,
		Hub:        hub,
	})

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
