package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dwill458/Anchor--sub003/config"
	"github.com/dwill458/Anchor--sub003/routes"
	"github.com/dwill458/Anchor--sub003/services"
	"github.com/dwill458/Anchor--sub003/utils"
)

func main() {
	config.InitDB()
	utils.InitS3()
	utils.InitMailer()

	hub := services.NewRealtimeHub()

	push, err := services.NewPushService(config.DB)
	if err != nil {
		log.Fatalf("push service init failed: %v", err)
	}

	moderation, err := services.NewModerationService()
	if err != nil {
		log.Fatalf("moderation service init failed: %v", err)
	}

	enhancement := services.NewEnhancementService(
		config.DB,
		services.NewImageGenService(),
		moderation,
		utils.S3ImageStore{},
		services.EnhancementConfigFromEnv(),
	)

	services.InitEventDeps(config.DB, hub, push)

	enhancement.Start()
	defer enhancement.Stop()

	r := routes.SetupRouter(routes.Deps{
		Enhancement: enhancement,
		Analytics:   services.NewAnalyticsService(config.DB),
		Push:        push,
		Reminders:   services.NewReminderService(config.DB, push),
		Realtime:    hub,
	})

	go func() {
		if err := r.Run(":8080"); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	// Drain the worker pool on SIGTERM so in-flight enhancement jobs
	// finish instead of being reclaimed by the next instance's sweeper.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down")
}
