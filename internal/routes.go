package internal

import (
	"archivist/internal/controllers"
	"archivist/internal/providers"
	"archivist/internal/structures"
	"net/http"
)

func InitRoutes(archiveController *controllers.ArchiveController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/tweets/tweet", http.HandlerFunc(archiveController.GetTweet))
	routers.Get("/tweets/month", http.HandlerFunc(archiveController.GetTweetsByMonth))
	routers.Get("/tweets/between", http.HandlerFunc(archiveController.GetTweetsBetween))
	routers.Get("/tweets/thatday", http.HandlerFunc(archiveController.GetTweetsFromThatDay))
	routers.Get("/tweets/search", http.HandlerFunc(archiveController.SearchTweets))
	routers.Get("/favorites/month", http.HandlerFunc(archiveController.GetFavoritesByMonth))
	routers.Get("/dms/conversations", http.HandlerFunc(archiveController.GetConversations))
	routers.Get("/dms/conversation", http.HandlerFunc(archiveController.GetConversation))
	routers.Get("/dms/around", http.HandlerFunc(archiveController.GetAround))
	routers.Get("/dms/find", http.HandlerFunc(archiveController.FindMessages))
	routers.Get("/dms/media", http.HandlerFunc(archiveController.GetMedia))
	routers.Get("/info", http.HandlerFunc(archiveController.GetInfo))
	routers.Post("/reload", http.HandlerFunc(archiveController.Reload))
	return routers
}
