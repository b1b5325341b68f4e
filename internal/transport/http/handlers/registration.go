package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akorenev/credential-service/internal/usecase"
)

// RegistrationHandler exposes the register endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Register godoc
// @Summary Register a new user account
// @Description Creates a user with profile and credential rows and returns the one-time generated password.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Registration request payload"
// @Success 201 {object} RegistrationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Mobile:       req.Mobile,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Age:          req.Age,
		Gender:       req.Gender,
		ProfileImage: req.ProfileBase64,
	}

	result, err := h.registration.Register(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMissingFields, Status: http.StatusBadRequest, Message: "All fields are required"},
			{Err: usecase.ErrInvalidEmail, Status: http.StatusBadRequest, Message: "Invalid email format"},
			{Err: usecase.ErrInvalidMobile, Status: http.StatusBadRequest, Message: "Invalid mobile format"},
			{Err: usecase.ErrIdentityTaken, Status: http.StatusBadRequest, Message: "Username or email already exists"},
		}, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The plaintext password is returned exactly once; only its hash is stored.
	c.JSON(http.StatusCreated, RegistrationResponse{
		Message:  "Registration successful",
		Password: result.Password,
	})
}
