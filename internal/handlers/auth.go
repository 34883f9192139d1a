package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
	"github.com/Windi-Fikriyansyah/writers_market_be/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
	Secure    bool
}

type RegisterReq struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,min=8,max=20"`
	Role     string `json:"role" validate:"omitempty,oneof=client freelancer"` // staff accounts are never self-registered
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, token string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     utils.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Secure,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func userView(u *models.User) fiber.Map {
	return fiber.Map{
		"id":       u.ID,
		"name":     u.Name,
		"email":    u.Email,
		"phone":    u.Phone,
		"role":     u.Role,
		"approved": u.Approved,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := parseBody(c, &req, false); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if fe := utils.ValidateStruct(req); fe != nil {
		return apperr.Validation("", "validation error").With("fields", fe)
	}

	role := models.RoleClient
	if req.Role == string(models.RoleFreelancer) {
		role = models.RoleFreelancer
	}

	var existing models.User
	err := h.DB.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return apperr.Conflict("", "email already registered").With("fields", fiber.Map{"email": "taken"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Internal(err, "failed to check email")
	}

	pw, err := utils.HashPassword(req.Password)
	if err != nil {
		return apperr.Internal(err, "failed to process password")
	}

	u := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: pw,
		Role:     role,
		IsActive: true,
		// freelancers wait for admin approval before they can bid
		Approved: role == models.RoleClient,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&u).Error; err != nil {
		return apperr.Internal(err, "failed to register")
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return apperr.Internal(err, "failed to sign token")
	}
	h.setCookie(c, token, h.Expires*60)

	return created(c, fiber.Map{"user": userView(&u)})
}

type LoginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := parseBody(c, &req, true); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var u models.User
	if err := h.DB.WithContext(c.UserContext()).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthorized("invalid email or password")
		}
		return apperr.Internal(err, "failed to load user")
	}
	if !utils.CheckPassword(u.Password, req.Password) {
		return apperr.Unauthorized("invalid email or password")
	}
	if !u.IsActive {
		return apperr.Forbidden("account is inactive")
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return apperr.Internal(err, "failed to sign token")
	}
	h.setCookie(c, token, h.Expires*60)

	return ok(c, fiber.Map{"user": userView(&u)})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.setCookie(c, "", -1)
	return c.JSON(fiber.Map{"success": true})
}

// Me returns the caller with counters, tier and badges.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var u models.User
	if err := h.DB.WithContext(c.UserContext()).Preload("Badges").First(&u, "id = ?", a.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthorized("user not found")
		}
		return apperr.Internal(err, "failed to load user")
	}
	return ok(c, u)
}
