package account

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"career-hub/internal/shared/server/middleware"
	"career-hub/internal/shared/server/respond"
)

const guestHeader = "X-Guest-Id"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/account/claim-guest", h.claimGuest)
}

// claimGuest moves the résumés, reports, conversations and interviews a
// browser created as a guest onto the signed-in account. Claiming the same
// guest twice is a no-op.
func (h *Handler) claimGuest(c *gin.Context) {
	if h.Svc == nil {
		respond.Unavailable(c, "unavailable", "account service is not configured")
		return
	}
	userID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if userID == "" || middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "sign in before claiming guest data", nil)
		return
	}

	guestID, issue := parseGuestID(c.GetHeader(guestHeader))
	if issue != "" {
		respond.BadRequest(c, "invalid "+guestHeader+" header", []map[string]string{
			{"field": guestHeader, "issue": issue},
		})
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), "guest:"+guestID, userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to claim guest data", nil)
		return
	}
	respond.OK(c, result)
}

func parseGuestID(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "required"
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", "invalid"
	}
	return raw, ""
}
