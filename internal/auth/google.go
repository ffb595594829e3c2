// Package auth implements Google sign-in. A successful login stores the
// profile and redirects to the UI with a signed session token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "career-hub/internal/shared/auth"
	"career-hub/internal/shared/server/respond"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/users"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	loginStateTTL     = 5 * time.Minute
)

type GoogleService struct {
	oauthConfig *oauth2.Config
	userInfoURL string
	uiRedirect  string
	states      *stateStore
	Users       *users.Service
}

func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, userSvc *users.Service) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		uiRedirect:  uiRedirect,
		states:      newStateStore(),
		Users:       userSvc,
	}
}

func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	c := s.oauthConfig
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Unavailable(c, "auth_not_configured", "Google sign-in is not configured")
		return
	}
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	s.states.put(state, verifier, loginStateTTL)

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
}

func (s *GoogleService) callback(c *gin.Context) {
	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respond.BadRequest(c, "missing state or code", nil)
		return
	}
	verifier, ok := s.states.consume(state)
	if !ok {
		respond.BadRequest(c, "login expired, start again", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		telemetry.Warn("auth.exchange_failed", map[string]any{"request_id": telemetry.RequestIDFrom(ctx), "error": err})
		respond.BadRequest(c, "failed to exchange code", nil)
		return
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		telemetry.Warn("auth.profile_failed", map[string]any{"request_id": telemetry.RequestIDFrom(ctx), "error": err})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch Google profile", nil)
		return
	}
	s.rememberUser(ctx, profile)

	signed, err := sharedauth.SignJWT(sharedauth.Claims{
		Email:            profile.Email,
		Name:             profile.FullName,
		Picture:          profile.PictureURL,
		RegisteredClaims: jwt.RegisteredClaims{Subject: profile.ID},
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}
	target, err := appendToken(s.uiRedirect, signed)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// fetchProfile reads the Google userinfo document. Older responses carry
// the subject as "id" rather than "sub".
func (s *GoogleService) fetchProfile(ctx context.Context, token *oauth2.Token) (users.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return users.User{}, err
	}
	resp, err := s.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return users.User{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return users.User{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return users.User{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	info := gjson.ParseBytes(body)
	subject := info.Get("sub").String()
	if subject == "" {
		subject = info.Get("id").String()
	}
	if subject == "" {
		return users.User{}, errors.New("userinfo has no subject")
	}
	return users.User{
		ID:         "google:" + subject,
		Provider:   "google",
		Email:      info.Get("email").String(),
		FullName:   info.Get("name").String(),
		GivenName:  info.Get("given_name").String(),
		FamilyName: info.Get("family_name").String(),
		PictureURL: info.Get("picture").String(),
	}, nil
}

// rememberUser stores the profile. Failures are logged; the login still
// succeeds with the token claims alone.
func (s *GoogleService) rememberUser(ctx context.Context, profile users.User) {
	if s.Users == nil || profile.Email == "" {
		return
	}
	if err := s.Users.UpsertFromAuth(ctx, profile); err != nil {
		telemetry.Warn("auth.user_upsert_failed", map[string]any{
			"request_id": telemetry.RequestIDFrom(ctx),
			"user_id":    profile.ID,
			"error":      err,
		})
	}
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
