package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mb-mentor/internal/config"
	"mb-mentor/internal/mentor"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":    cfg.Server.Host,
				"port":    cfg.Server.Port,
				"subpath": cfg.Server.Subpath,
			},
			"llm":       gin.H{"name": cfg.LLM.Name},
			"retrieval": cfg.Retrieval,
			"dialogue":  cfg.Dialogue,
		})
	}
}

// GET /mentors
func ListMentorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		out := make([]gin.H, 0, len(mentor.IDs()))
		for _, id := range mentor.IDs() {
			p, err := mentor.Get(id)
			if err != nil {
				continue
			}
			out = append(out, gin.H{"id": p.ID, "name": p.DisplayName, "goal": p.Goal})
		}
		c.JSON(http.StatusOK, out)
	}
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userId")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
