package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-server-go/internal/domain/gatekeeper"
	"clinic-server-go/internal/domain/model"
	"clinic-server-go/internal/platform/errors"
	httptransport "clinic-server-go/internal/transport/http"
)

// Service is the HTTP surface for login and logout.
type Service struct {
	gatekeeper *gatekeeper.Gatekeeper
	logger     model.Logger
}

// NewService creates the auth transport service.
func NewService(gk *gatekeeper.Gatekeeper, logger model.Logger) (*Service, error) {
	if gk == nil {
		return nil, errors.New(errors.KindConfig, "auth.new", "gatekeeper is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "auth.new", "logger is required")
	}
	return &Service{gatekeeper: gk, logger: logger}, nil
}

// Register mounts the auth routes under the group.
func (s *Service) Register(router *gin.RouterGroup) {
	router.POST("/:group/login", s.handleLogin)
	router.POST("/:group/logout", s.handleLogout)
}

// RegisterSecured mounts routes that require an authenticated session.
func (s *Service) RegisterSecured(router *gin.RouterGroup) {
	router.GET("/me", s.handleMe)
}

func (s *Service) handleMe(c *gin.Context) {
	identity := c.MustGet(httptransport.ContextIdentity).(model.ClientIdentity)
	httptransport.RespondSuccess(c, http.StatusOK, identity, "")
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Service) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := s.gatekeeper.Login(
		c.Request.Context(),
		model.Credentials{Username: req.Username, Password: req.Password},
		c.Param("group"),
		c.ClientIP(),
	)
	if err != nil {
		status := errors.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("login failed: %v", err)
		}
		httptransport.RespondError(c, status, errors.UserMessage(err))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, result, "login successful")
}

func (s *Service) handleLogout(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		httptransport.RespondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.gatekeeper.Logout(c.Request.Context(), tokenString, c.ClientIP()); err != nil {
		status := errors.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("logout failed: %v", err)
		}
		httptransport.RespondError(c, status, errors.UserMessage(err))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "logout successful")
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
