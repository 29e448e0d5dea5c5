package http

import (
	"net/http"
	"strings"

	"docsign/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
		return
	}
	user, err := s.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusCreated, buildUserResponse(user), "User registered successfully")
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
		return
	}
	user, pair, err := s.accounts.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setAuthCookies(c, pair)
	resp := buildUserResponse(user)
	writeSuccess(c, http.StatusOK, authResponse{
		User:         &resp,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "User logged in successfully")
}

// handleRefreshToken accepts the refresh token from its cookie or the body.
func (s *Server) handleRefreshToken(c *gin.Context) {
	token, _ := c.Cookie(refreshTokenCookie)
	if strings.TrimSpace(token) == "" {
		var req refreshRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
				return
			}
		}
		token = req.RefreshToken
	}
	_, pair, err := s.accounts.Refresh(c.Request.Context(), token)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.setAuthCookies(c, pair)
	writeSuccess(c, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Access token refreshed")
}

func (s *Server) handleLogout(c *gin.Context) {
	principal := getPrincipal(c)
	if err := s.accounts.Logout(c.Request.Context(), principal.Subject); err != nil {
		s.writeError(c, err)
		return
	}
	s.clearAuthCookies(c)
	writeSuccess(c, http.StatusOK, gin.H{}, "User logged out successfully")
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.accounts.Me(c.Request.Context(), getPrincipal(c).Subject)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, buildUserResponse(user), "User fetched successfully")
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
		return
	}
	err := s.accounts.ChangePassword(c.Request.Context(), usecase.ChangePasswordInput{
		UserID:      getPrincipal(c).Subject,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.accounts.ListUsers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, buildUserResponse(user))
	}
	writeSuccess(c, http.StatusOK, out, "Users fetched successfully")
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	if err := s.accounts.DeleteUser(c.Request.Context(), userID); err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, gin.H{}, "User deleted successfully")
}

func (s *Server) handleUpdateRole(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
		return
	}
	user, err := s.accounts.UpdateRole(c.Request.Context(), userID, req.Role)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeSuccess(c, http.StatusOK, buildUserResponse(user), "User role updated successfully")
}

func uuidParam(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" is required")
		return "", false
	}
	if _, err := uuid.Parse(value); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" must be a UUID")
		return "", false
	}
	return value, true
}
