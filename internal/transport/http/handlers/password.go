package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akorenev/credential-service/internal/usecase"
)

// PasswordHandler exposes the change-password endpoint.
type PasswordHandler struct {
	passwords *usecase.PasswordService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// ChangePassword godoc
// @Summary Change a user's password
// @Description Replaces the stored password hash and clears the first-login flag.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordChangeRequest true "Password change request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /change-password [post]
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid change password payload"))
		return
	}

	err := h.passwords.ResetPassword(c.Request.Context(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMissingFields, Status: http.StatusBadRequest, Message: "All fields are required"},
			{Err: usecase.ErrPasswordMismatch, Status: http.StatusBadRequest, Message: "Password and confirm password do not match"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User not found"},
		}, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
