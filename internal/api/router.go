package api

import (
	"path"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"mb-mentor/internal/archive"
	"mb-mentor/internal/auth"
	"mb-mentor/internal/config"
	"mb-mentor/internal/dialogue"
	"mb-mentor/internal/session"
)

// Deps bundles the orchestration collaborators the handlers need.
type Deps struct {
	Engine   *dialogue.Engine
	Sessions *session.Manager
	Archive  *archive.Store
}

func SetupRouter(cfg *config.Config, rdb *redis.Client, deps Deps) *gin.Engine {
	r := gin.Default()
	subpath := cfg.Server.Subpath // e.g. "/mentor" or any custom path, always starts with '/'

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/config", configHandler(cfg))
		group.GET("/mentors", ListMentorsHandler())

		// Setup: only if no users
		group.POST("/setup", SetupHandler())

		// Auth
		group.POST("/auth/login", LoginHandler(cfg, rdb))
		group.POST("/auth/logout", auth.AuthMiddleware(cfg, rdb, false), LogoutHandler(rdb))
		group.GET("/auth/me", auth.AuthMiddleware(cfg, rdb, false), MeHandler())

		// --- Conversations ---
		conv := group.Group("/conversations", auth.AuthMiddleware(cfg, rdb, false))
		{
			conv.POST("", CreateConversationHandler(deps))
			conv.GET("", ListConversationsHandler(deps))
			conv.POST("/import", ImportConversationHandler(deps))
			conv.GET("/:id", GetConversationHandler(deps))
			conv.POST("/:id/messages", SendMessageHandler(deps))
			conv.PUT("/:id/mentor", SwitchMentorHandler(deps))
			conv.POST("/:id/summary", SummaryHandler(deps))
			conv.POST("/:id/progress", ProgressHandler(deps))
			conv.GET("/:id/export", ExportConversationHandler(deps))
			conv.POST("/:id/reset", ResetConversationHandler(deps))
			conv.POST("/:id/archive", ArchiveConversationHandler(deps))
		}

		// --- Archived transcripts ---
		group.GET("/archives", auth.AuthMiddleware(cfg, rdb, false), ListArchivesHandler(deps))
		group.GET("/archives/:id", auth.AuthMiddleware(cfg, rdb, false), GetArchiveHandler(deps))

		// --- Streaming WebSocket endpoint ---
		group.GET(path.Join("/ws", "conversations"), WSConversationHandler(cfg, rdb, deps))
	}
	return r
}
