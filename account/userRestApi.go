package account

import (
	"errors"
	"net/http"
	"procurement/bizerror"
	"procurement/domain"
	"procurement/tables"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// RegisterUsersHandler serves user management, every route requires the privileged role.
func RegisterUsersHandler(r *gin.Engine, s *Service, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/users", middleWares...)
	handler := &usersHandler{service: s}

	g.GET("", handler.handleQuery)
	g.POST("", handler.handleCreate)
	g.PATCH(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

type usersHandler struct {
	service *Service
}

func parseUserID(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return id
}

func bindFields(c *gin.Context) tables.Fields {
	fields := tables.Fields{}
	if err := c.ShouldBindBodyWith(&fields, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	return fields
}

func (h *usersHandler) handleQuery(c *gin.Context) {
	users := h.service.ListUsers()
	for i := range users {
		users[i] = users[i].Stripped()
	}
	c.JSON(http.StatusOK, users)
}

func (h *usersHandler) handleCreate(c *gin.Context) {
	creation := domain.IdentityCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	identity, _, err := h.service.AddUser(c.Request.Context(), creation)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, identity.Stripped())
}

func (h *usersHandler) handleUpdate(c *gin.Context) {
	id := parseUserID(c)
	fields := bindFields(c)
	if _, err := h.service.UpdateUser(c.Request.Context(), id, fields); err != nil {
		panic(err)
	}
	if identity, found := h.service.GetUser(id); found {
		c.JSON(http.StatusOK, identity.Stripped())
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *usersHandler) handleDelete(c *gin.Context) {
	h.service.DeleteUser(c.Request.Context(), parseUserID(c))
	c.Status(http.StatusNoContent)
}

// RegisterSectorsHandler serves sectors, reads need a session and writes the privileged role.
func RegisterSectorsHandler(r *gin.Engine, s *Service, read, write []gin.HandlerFunc) {
	handler := &sectorsHandler{service: s}

	handlers := append([]gin.HandlerFunc{}, read...)
	r.GET("/v1/sectors", append(handlers, handler.handleQuery)...)

	g := r.Group("/v1/sectors", write...)
	g.POST("", handler.handleCreate)
	g.PATCH(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

type sectorsHandler struct {
	service *Service
}

func (h *sectorsHandler) handleQuery(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListSectors())
}

func (h *sectorsHandler) handleCreate(c *gin.Context) {
	creation := domain.SectorCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	sector, _, err := h.service.AddSector(c.Request.Context(), creation)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, sector)
}

func (h *sectorsHandler) handleUpdate(c *gin.Context) {
	id := c.Param("id")
	fields := bindFields(c)
	if _, err := h.service.UpdateSector(c.Request.Context(), id, fields); err != nil {
		panic(err)
	}
	for _, sector := range h.service.ListSectors() {
		if sector.ID == id {
			c.JSON(http.StatusOK, sector)
			return
		}
	}
	c.Status(http.StatusAccepted)
}

func (h *sectorsHandler) handleDelete(c *gin.Context) {
	h.service.DeleteSector(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}
