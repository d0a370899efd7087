package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mb-mentor/internal/db"
	"mb-mentor/internal/user"
)

// SetupHandler bootstraps the very first account as an admin. It refuses to
// run once any user exists, so a deployed instance cannot be re-seized.
func SetupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var count int64
		if err := db.DB.Model(&user.User{}).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "DB error"}})
			return
		}
		if count > 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "setup already completed"}})
			return
		}

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "username and password required"}})
			return
		}

		hash, err := user.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "password hash failed"}})
			return
		}
		admin := user.User{Username: req.Username, PasswordHash: hash, Role: user.RoleAdmin}
		if err := db.DB.Create(&admin).Error; err != nil {
			if strings.Contains(err.Error(), "unique") {
				c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "username already exists"}})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "DB error"}})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":       admin.ID,
			"username": admin.Username,
			"role":     admin.Role,
		})
	}
}
