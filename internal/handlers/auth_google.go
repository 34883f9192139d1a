package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/config"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

const (
	stateCookie    = "oauth_state"
	nextCookie     = "oauth_next"
	googleUserInfo = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleOAuthHandler signs clients in with Google and issues the same
// session cookie as Login.
type GoogleOAuthHandler struct {
	Auth            *AuthHandler
	OAuth           *oauth2.Config
	UserInfoURL     string
	FrontendBaseURL string
}

func NewGoogleOAuthHandler(auth *AuthHandler, cfg config.GoogleConfig, frontend string) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		Auth: auth,
		OAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL:     googleUserInfo,
		FrontendBaseURL: frontend,
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) shortCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Auth.Secure,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := c.Query("next", "/")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	st := randomState(32)
	h.shortCookie(c, stateCookie, st, 10*60)
	h.shortCookie(c, nextCookie, next, 10*60)

	return c.Redirect(h.OAuth.AuthCodeURL(st), http.StatusTemporaryRedirect)
}

type googleProfile struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *GoogleOAuthHandler) failRedirect(c *fiber.Ctx, msg string) error {
	return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape(msg), http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" || state != c.Cookies(stateCookie) {
		return h.failRedirect(c, "invalid sign-in attempt")
	}
	next := c.Cookies(nextCookie)
	if next == "" {
		next = "/"
	}
	h.shortCookie(c, stateCookie, "", -1)
	h.shortCookie(c, nextCookie, "", -1)

	ctx := c.UserContext()
	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		log.Printf("[GoogleAuth] exchange: %v", err)
		return h.failRedirect(c, "google sign-in failed")
	}
	resp, err := h.OAuth.Client(ctx, tok).Get(h.UserInfoURL)
	if err != nil {
		log.Printf("[GoogleAuth] userinfo: %v", err)
		return h.failRedirect(c, "google sign-in failed")
	}
	defer resp.Body.Close()

	var gp googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&gp); err != nil {
		log.Printf("[GoogleAuth] decode userinfo: %v", err)
		return h.failRedirect(c, "google sign-in failed")
	}
	email := strings.ToLower(strings.TrimSpace(gp.Email))
	if email == "" || !gp.VerifiedEmail {
		return h.failRedirect(c, "google account has no verified email")
	}

	u, err := h.findOrCreate(c, email, strings.TrimSpace(gp.Name))
	if err != nil {
		log.Printf("[GoogleAuth] user %s: %v", email, err)
		return h.failRedirect(c, "could not sign you in")
	}
	if !u.IsActive {
		return h.failRedirect(c, "account is inactive")
	}

	jwtToken, err := utils.SignJWT(h.Auth.JWTSecret, u.ID.String(), string(u.Role), h.Auth.Expires)
	if err != nil {
		log.Printf("[GoogleAuth] sign jwt: %v", err)
		return h.failRedirect(c, "could not sign you in")
	}
	h.Auth.setCookie(c, jwtToken, h.Auth.Expires*60)

	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}

// findOrCreate signs up unknown Google users as clients with an unusable
// random password.
func (h *GoogleOAuthHandler) findOrCreate(c *fiber.Ctx, email, name string) (*models.User, error) {
	db := h.Auth.DB.WithContext(c.UserContext())

	var u models.User
	err := db.Where("email = ?", email).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := utils.HashPassword(randomState(24))
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	u = models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     models.RoleClient,
		IsActive: true,
		Approved: true,
	}
	if err := db.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
