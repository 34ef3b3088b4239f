package requests

import (
	"errors"
	"net/http"
	"procurement/bizerror"
	"procurement/domain"
	"procurement/tables"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// RegisterRequestsHandler serves requests, creating one needs a session, changing or removing one the privileged role.
func RegisterRequestsHandler(r *gin.Engine, s *Service, read, write []gin.HandlerFunc) {
	handler := &requestsHandler{service: s, now: time.Now}

	g := r.Group("/v1/requests", read...)
	g.GET("", handler.handleQuery)
	g.GET(":id", handler.handleDetail)
	g.POST("", handler.handleCreate)

	w := r.Group("/v1/requests", write...)
	w.PATCH(":id", handler.handleUpdate)
	w.DELETE(":id", handler.handleDelete)

	r.GET("/v1/dashboard", append(append([]gin.HandlerFunc{}, read...), handler.handleDashboard)...)
}

type requestsHandler struct {
	service *Service
	now     func() time.Time
}

func parseRequestID(c *gin.Context) int64 {
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

func (h *requestsHandler) handleQuery(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Rows(h.now()))
}

func (h *requestsHandler) handleDetail(c *gin.Context) {
	r, found := h.service.GetRequest(parseRequestID(c))
	if !found {
		panic(bizerror.ErrNotFound)
	}
	c.JSON(http.StatusOK, domain.RequestRow{Request: r, StatusColor: h.service.StatusColor(r.Status), Overdue: domain.IsOverdue(r, h.now())})
}

func (h *requestsHandler) handleCreate(c *gin.Context) {
	creation := domain.RequestCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	r, _, err := h.service.AddRequest(c.Request.Context(), creation)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, r)
}

func (h *requestsHandler) handleUpdate(c *gin.Context) {
	id := parseRequestID(c)
	fields := bindFields(c)
	if _, err := h.service.UpdateRequest(c.Request.Context(), id, fields); err != nil {
		panic(err)
	}
	if r, found := h.service.GetRequest(id); found {
		c.JSON(http.StatusOK, r)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *requestsHandler) handleDelete(c *gin.Context) {
	h.service.DeleteRequest(c.Request.Context(), parseRequestID(c))
	c.Status(http.StatusNoContent)
}

func (h *requestsHandler) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Dashboard(h.now()))
}

// RegisterFormFieldsHandler serves the form field catalog, PUT replaces the whole catalog.
func RegisterFormFieldsHandler(r *gin.Engine, s *Service, read, write []gin.HandlerFunc) {
	handler := &formFieldsHandler{service: s}

	r.GET("/v1/form-fields", append(append([]gin.HandlerFunc{}, read...), handler.handleQuery)...)

	g := r.Group("/v1/form-fields", write...)
	g.POST("", handler.handleCreate)
	g.PUT("", handler.handleReplace)
	g.PATCH(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

type formFieldsHandler struct {
	service *Service
}

func (h *formFieldsHandler) handleQuery(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListFormFields())
}

func (h *formFieldsHandler) handleCreate(c *gin.Context) {
	creation := domain.FormFieldCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	field, _, err := h.service.AddFormField(c.Request.Context(), creation)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, field)
}

func (h *formFieldsHandler) handleReplace(c *gin.Context) {
	fields := []domain.FormField{}
	if err := c.ShouldBindBodyWith(&fields, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if _, err := h.service.ReplaceFormFields(c.Request.Context(), fields); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, h.service.ListFormFields())
}

func (h *formFieldsHandler) handleUpdate(c *gin.Context) {
	id := c.Param("id")
	fields := bindFields(c)
	if _, err := h.service.UpdateFormField(c.Request.Context(), id, fields); err != nil {
		panic(err)
	}
	for _, f := range h.service.ListFormFields() {
		if f.ID == id {
			c.JSON(http.StatusOK, f)
			return
		}
	}
	c.Status(http.StatusAccepted)
}

func (h *formFieldsHandler) handleDelete(c *gin.Context) {
	if _, err := h.service.DeleteFormField(c.Request.Context(), c.Param("id")); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func RegisterStatusesHandler(r *gin.Engine, s *Service, read, write []gin.HandlerFunc) {
	handler := &statusesHandler{service: s}

	r.GET("/v1/statuses", append(append([]gin.HandlerFunc{}, read...), handler.handleQuery)...)

	g := r.Group("/v1/statuses", write...)
	g.POST("", handler.handleCreate)
	g.PATCH(":id", handler.handleUpdate)
	g.DELETE(":id", handler.handleDelete)
}

type statusesHandler struct {
	service *Service
}

func (h *statusesHandler) handleQuery(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListStatuses())
}

func (h *statusesHandler) handleCreate(c *gin.Context) {
	creation := domain.StatusCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	status, _, err := h.service.AddStatus(c.Request.Context(), creation)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, status)
}

func (h *statusesHandler) handleUpdate(c *gin.Context) {
	id := c.Param("id")
	fields := bindFields(c)
	if _, err := h.service.UpdateStatus(c.Request.Context(), id, fields); err != nil {
		panic(err)
	}
	for _, s := range h.service.ListStatuses() {
		if s.ID == id {
			c.JSON(http.StatusOK, s)
			return
		}
	}
	c.Status(http.StatusAccepted)
}

func (h *statusesHandler) handleDelete(c *gin.Context) {
	h.service.DeleteStatus(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}
