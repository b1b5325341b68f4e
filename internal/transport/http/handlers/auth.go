package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/akorenev/credential-service/internal/usecase"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate a user with credentials
// @Description Validates the username and password, returning a signed access token on success.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
		IP:       strings.TrimSpace(c.ClientIP()),
	}

	result, err := h.auth.Authenticate(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUsernameRequired, Status: http.StatusBadRequest, Message: "Username and password are required"},
			{Err: usecase.ErrPasswordRequired, Status: http.StatusBadRequest, Message: "Username and password are required"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid username or password"},
		}, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:      result.Token,
		FirstLogin: result.FirstLogin,
		Username:   result.Username,
		FirstName:  result.FirstName,
		LastName:   result.LastName,
	})
}
