package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"career-hub/internal/shared/server/middleware"
	"career-hub/internal/shared/server/respond"
)

// Handler serves the current identity.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me describes the caller. Guests get their guest id; signed-in users get
// the stored profile, falling back to the token claims when no row exists.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	if middleware.IsGuest(c) {
		respond.OK(c, gin.H{"userId": userID, "isGuest": true})
		return
	}

	resp := gin.H{
		"userId":  userID,
		"isGuest": false,
	}
	if email := middleware.UserEmailFromContext(c); email != "" {
		resp["email"] = email
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		resp["fullName"] = name
	}
	if picture := middleware.UserPictureFromContext(c); picture != "" {
		resp["pictureUrl"] = picture
	}

	if h.Svc != nil {
		user, err := h.Svc.GetByID(c.Request.Context(), userID)
		switch {
		case err == nil:
			resp["email"] = user.Email
			resp["fullName"] = user.FullName
			resp["pictureUrl"] = user.PictureURL
			resp["provider"] = user.Provider
			resp["createdAt"] = user.CreatedAt
			if user.LastLoginAt != nil {
				resp["lastLoginAt"] = user.LastLoginAt
			}
		case errors.Is(err, ErrNotFound):
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
			return
		}
	}
	respond.OK(c, resp)
}
