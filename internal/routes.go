package internal

import (
	"net/http"
	"sparkd/internal/controllers"
	"sparkd/internal/providers"
	"sparkd/internal/structures"
)

func InitRoutes(funnelController *controllers.FunnelController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/state", http.HandlerFunc(funnelController.GetState))
	routers.Get("/chat", http.HandlerFunc(funnelController.GetChat))
	routers.Get("/plans", http.HandlerFunc(funnelController.GetPlans))
	routers.Post("/signup", http.HandlerFunc(funnelController.Signup))
	routers.Post("/like", http.HandlerFunc(funnelController.Like))
	routers.Post("/dislike", http.HandlerFunc(funnelController.Dislike))
	routers.Post("/message", http.HandlerFunc(funnelController.SendMessage))
	routers.Post("/checkout", http.HandlerFunc(funnelController.Checkout))
	routers.Post("/purchase", http.HandlerFunc(funnelController.Purchase))
	routers.Post("/reset", http.HandlerFunc(funnelController.Reset))
	return routers
}
