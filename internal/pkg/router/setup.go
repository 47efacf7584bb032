package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/toolpress/toolpress/app/controllers"
)

// Router installs one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Controllers bundles the HTTP controllers the routers mount.
type Controllers struct {
	User         *controllers.UserController
	Subscription *controllers.SubscriptionController
	Affiliate    *controllers.AffiliateController
	Analytics    *controllers.AnalyticsController
}

func InstallRouter(app *fiber.App, ctrls Controllers) {
	setup(app, NewApiRouter(ctrls))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
