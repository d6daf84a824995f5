package handlers

import (
	"errors"
	"net/http"

	"github.com/laxjovial/assistant-core/internal/api"
	"github.com/laxjovial/assistant-core/internal/users"
)

// PostRegisterHandler godoc
// @Summary      Register a new user
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      api.RegisterRequest  true  "Account details"
// @Success      201      {object}  api.AuthResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /auth/register [post]
func PostRegisterHandler(w http.ResponseWriter, r *http.Request) {
	var requestData api.RegisterRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	user, err := handlerInstance.userService.Register(
		requestData.Username, requestData.Email, requestData.Password,
		requestData.Tier, requestData.SecurityQuestion, requestData.SecurityAnswer)
	if err != nil {
		logRH.Error("Registration failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not register user")
		return
	}
	writeJsonResponse(w, http.StatusCreated, api.AuthResponse{Username: user.Username, Tier: user.Tier})
}

// PostLoginHandler godoc
// @Summary      Log in with email and password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      api.LoginRequest  true  "Credentials"
// @Success      200      {object}  api.AuthResponse  "Session ID to present as a Bearer token"
// @Failure      401      {object}  api.JobResponse
// @Router       /auth/login [post]
func PostLoginHandler(w http.ResponseWriter, r *http.Request) {
	var requestData api.LoginRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	sessionID, user, err := handlerInstance.userService.Login(r.Context(), requestData.Email, requestData.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrUserNotFound) {
			WriteErrorResponse(w, http.StatusUnauthorized, "", "Invalid credentials")
			return
		}
		logRH.Error("Login failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not log in")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.AuthResponse{
		SessionID: sessionID,
		Username:  user.Username,
		Tier:      user.Tier,
	})
}

// PostLogoutHandler godoc
// @Summary      Invalidate the current session
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  api.AuthResponse
// @Router       /auth/logout [post]
func PostLogoutHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := bearerToken(r)
	if sessionID != "" {
		handlerInstance.userService.Logout(r.Context(), sessionID)
	}
	writeJsonResponse(w, http.StatusOK, api.AuthResponse{Message: "Logged out"})
}

// PostOTPRequestHandler godoc
// @Summary      Request a one-time login code
// @Description  Issues a short-lived 6-digit code for the account's email. Delivery is out of band.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      api.OTPRequest  true  "Account email"
// @Success      200      {object}  api.AuthResponse
// @Failure      404      {object}  api.JobResponse
// @Router       /auth/otp/request [post]
func PostOTPRequestHandler(w http.ResponseWriter, r *http.Request) {
	var requestData api.OTPRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	if _, err := handlerInstance.userService.RequestOTP(r.Context(), requestData.Email); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "", "No account for that email")
			return
		}
		logRH.Error("OTP request failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not issue code")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.AuthResponse{Message: "Code sent"})
}

// PostOTPVerifyHandler godoc
// @Summary      Exchange a one-time code for a session
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      api.OTPVerifyRequest  true  "Email and code"
// @Success      200      {object}  api.AuthResponse
// @Failure      401      {object}  api.JobResponse
// @Router       /auth/otp/verify [post]
func PostOTPVerifyHandler(w http.ResponseWriter, r *http.Request) {
	var requestData api.OTPVerifyRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	sessionID, user, err := handlerInstance.userService.VerifyOTP(r.Context(), requestData.Email, requestData.Code)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrTooManyAttempts):
			WriteErrorResponse(w, http.StatusTooManyRequests, "", "Too many attempts, request a new code")
		case errors.Is(err, users.ErrInvalidOTP):
			WriteErrorResponse(w, http.StatusUnauthorized, "", "Invalid or expired code")
		default:
			logRH.Error("OTP verification failed", "err", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not verify code")
		}
		return
	}
	writeJsonResponse(w, http.StatusOK, api.AuthResponse{
		SessionID: sessionID,
		Username:  user.Username,
		Tier:      user.Tier,
	})
}

// PostResetRequestHandler godoc
// @Summary      Request a password reset token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      api.ResetRequest  true  "Account email"
// @Success      200      {object}  api.AuthResponse
// @Failure      404      {object}  api.JobResponse
// @Router       /auth/reset/request [post]
func PostResetRequestHandler(w http.ResponseWriter, r *http.Request) {
	var requestData api.ResetRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	if _, err := handlerInstance.userService.RequestPasswordReset(r.Context(), requestData.Email); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "", "No account for that email")
			return
		}
		logRH.Error("Reset request failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not issue reset token")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.AuthResponse{Message: "Reset token issued"})
}

// PostResetConfirmHandler godoc
// @Summary      Set a new password with a reset token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      api.ResetConfirmRequest  true  "Token and new password"
// @Success      200      {object}  api.AuthResponse
// @Failure      401      {object}  api.JobResponse
// @Router       /auth/reset/confirm [post]
func PostResetConfirmHandler(w http.ResponseWriter, r *http.Request) {
	var requestData api.ResetConfirmRequest
	if !decodeAndValidate(w, r, &requestData) {
		return
	}

	if err := handlerInstance.userService.ResetPassword(r.Context(), requestData.Token, requestData.NewPassword); err != nil {
		if errors.Is(err, users.ErrInvalidResetToken) {
			WriteErrorResponse(w, http.StatusUnauthorized, "", "Invalid or expired reset token")
			return
		}
		logRH.Error("Password reset failed", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not reset password")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.AuthResponse{Message: "Password updated"})
}
