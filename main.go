package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/toolpress/toolpress/app/controllers"
	"github.com/toolpress/toolpress/app/repository"
	"github.com/toolpress/toolpress/internal/pkg/affiliate"
	"github.com/toolpress/toolpress/internal/pkg/analytics"
	"github.com/toolpress/toolpress/internal/pkg/cache"
	"github.com/toolpress/toolpress/internal/pkg/database"
	"github.com/toolpress/toolpress/internal/pkg/env"
	"github.com/toolpress/toolpress/internal/pkg/payment"
	"github.com/toolpress/toolpress/internal/pkg/router"
	"github.com/toolpress/toolpress/internal/pkg/subscription"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()

	repos := repository.NewRepositories(database.GetDB())
	appCache := cache.New()

	providers := map[string]payment.Provider{
		"stripe": payment.NewStripeClientFromEnv(),
		"paddle": payment.NewPaddleClientFromEnv(),
	}

	subscriptionSvc := subscription.NewService(repos.User, repos.Subscription, providers, appCache)
	affiliateSvc := affiliate.NewService(repos.Affiliate, repos.Post, repos.User, appCache)
	analyticsSvc := analytics.NewService(repos.Analytics, repos.Subscription, repos.Affiliate, repos.Post, appCache)

	app := fiber.New(fiber.Config{
		AppName: "toolpress",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app, router.Controllers{
		User:         controllers.NewUserController(repos.User),
		Subscription: controllers.NewSubscriptionController(subscriptionSvc),
		Affiliate:    controllers.NewAffiliateController(affiliateSvc),
		Analytics:    controllers.NewAnalyticsController(analyticsSvc),
	})

	return app
}
