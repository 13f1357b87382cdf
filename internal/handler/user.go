package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	userService *service.UserService
	jwtSecret   string
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, jwtSecret string) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtSecret:   jwtSecret,
	}
}

// RegisterUserRequest is the HTTP request body for registering a user.
type RegisterUserRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	PlateNumber  string `json:"plate_number,omitempty"`
	VehicleColor string `json:"vehicle_color,omitempty"`
}

// TokenRequest is the HTTP request body for exchanging an email for a token.
type TokenRequest struct {
	Email string `json:"email"`
}

// UserResponse is the HTTP representation of a user.
type UserResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone,omitempty"`
	Avatar        string  `json:"avatar,omitempty"`
	IsDriver      bool    `json:"is_driver"`
	Vehicle       string  `json:"vehicle,omitempty"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
}

// RegisterUserResponse is the HTTP response for registering a user.
type RegisterUserResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Avatar:        u.Avatar,
		IsDriver:      u.IsDriver(),
		Vehicle:       u.Driver.Vehicle(),
		RatingAverage: u.Rating.Average,
		RatingCount:   u.Rating.Count,
	}
}

// Register handles POST /v1/users
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.userService.RegisterUser(c.Request.Context(), service.RegisterUserRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Avatar:       req.Avatar,
		VehicleModel: req.VehicleModel,
		PlateNumber:  req.PlateNumber,
		VehicleColor: req.VehicleColor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(h.jwtSecret, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, RegisterUserResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// Token handles POST /v1/auth/token. Only routed when dev tokens are
// enabled; it exchanges a bare email for a signed token with no credential
// check.
func (h *UserHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.userService.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(h.jwtSecret, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"token": token})
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// GetMe handles GET /v1/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}
