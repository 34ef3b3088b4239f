package sessions

import (
	"net/http"
	"procurement/account"
	"procurement/bizerror"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func RegisterSessionHandler(r *gin.Engine, s *account.Service, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session", middleWares...)
	handler := &sessionHandler{service: s}

	g.GET("", handler.handleDetail)
	g.POST("", handler.handleLogin)
	g.DELETE("", handler.handleLogout)
}

type sessionHandler struct {
	service *account.Service
}

func (h *sessionHandler) handleLogin(c *gin.Context) {
	login := LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	identity, err := h.service.Login(c.Request.Context(), login.Email, login.Password)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &identity)
}

func (h *sessionHandler) handleLogout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func (h *sessionHandler) handleDetail(c *gin.Context) {
	identity := h.service.Current()
	if identity == nil {
		panic(bizerror.ErrUnauthenticated)
	}
	c.JSON(http.StatusOK, identity)
}
