package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"procurement/account"
	"procurement/bizerror"
	"procurement/domain"
	"procurement/idgen"
	"procurement/session"
	"procurement/tables"
	"procurement/testinfra"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("UserRestApi", func() {
	var (
		ctx     context.Context
		router  *gin.Engine
		service *account.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		ids, err := idgen.NewGenerator(12)
		Expect(err).To(BeNil())
		service = account.NewService(ctx, tables.NewMemoryClient(nil, domain.TableUsers, domain.TableSectors), nil,
			account.Options{IDs: ids, Seed: true})
		Expect(service.Load(ctx)).To(BeNil())

		router = gin.New()
		router.Use(bizerror.ErrorHandling())
		account.RegisterUsersHandler(router, service, session.RequirePrivileged(service))
		account.RegisterSectorsHandler(router, service,
			[]gin.HandlerFunc{session.RequireSession(service)}, []gin.HandlerFunc{session.RequirePrivileged(service)})
	})
	AfterEach(func() {
		service.Close()
	})

	login := func(email, password string) {
		_, err := service.Login(ctx, email, password)
		Expect(err).To(BeNil())
	}

	Describe("users", func() {
		It("should require the privileged role", func() {
			status, _, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/v1/users", nil), router)
			Expect(status).To(Equal(http.StatusUnauthorized))

			login("john@example.com", "password")
			status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/v1/users", nil), router)
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(body).To(MatchJSON(`{"code":"security.forbidden","message":"access forbidden","data":null}`))
		})

		It("should list users without secrets", func() {
			login("admin@empresa.com", "admin123")
			status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/v1/users", nil), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`[
				{"id":1,"name":"Administrador","email":"admin@empresa.com","role":"admin","sector":"TI"},
				{"id":2,"name":"John Doe","email":"john@example.com","role":"user","sector":"RH"},
				{"id":3,"name":"Jane Smith","email":"jane@example.com","role":"user","sector":"Financeiro"}]`))
		})

		It("should create update and delete users", func() {
			login("admin@empresa.com", "admin123")

			req := httptest.NewRequest(http.MethodPost, "/v1/users",
				bytes.NewReader([]byte(`{"name":"Ann","email":"ann@empresa.com","password":"secret","role":"admin"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusCreated))
			created := domain.Identity{}
			Expect(json.Unmarshal([]byte(body), &created)).To(BeNil())
			Expect(created.ID).ToNot(BeZero())
			Expect(created.Password).To(BeEmpty())
			Expect(created.Sector).To(Equal(domain.NoSector))

			req = httptest.NewRequest(http.MethodPatch, "/v1/users/2", bytes.NewReader([]byte(`{"sector":"TI","id":9}`)))
			status, body, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"id":2,"name":"John Doe","email":"john@example.com","role":"user","sector":"TI"}`))

			req = httptest.NewRequest(http.MethodPatch, "/v1/users/404", bytes.NewReader([]byte(`{"sector":"TI"}`)))
			status, _, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusAccepted))

			status, _, _ = testinfra.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/v1/users/2", nil), router)
			Expect(status).To(Equal(http.StatusNoContent))
			_, found := service.GetUser(2)
			Expect(found).To(BeFalse())
		})

		It("should reject malformed input", func() {
			login("admin@empresa.com", "admin123")

			req := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader([]byte(`{"name":"Ann","email":"ann"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(ContainSubstring(`"code":"common.bad_param"`))

			status, body, _ = testinfra.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/v1/users/abc", nil), router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"common.bad_param","message":"invalid id 'abc'","data":null}`))
		})
	})

	Describe("sectors", func() {
		It("should let any session read and only admins write", func() {
			login("john@example.com", "password")
			status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/v1/sectors", nil), router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`[
				{"id":"sector-1","name":"TI","description":"Tecnologia da Informação"},
				{"id":"sector-2","name":"RH","description":"Recursos Humanos"},
				{"id":"sector-3","name":"Financeiro","description":"Departamento Financeiro"}]`))

			req := httptest.NewRequest(http.MethodPost, "/v1/sectors", bytes.NewReader([]byte(`{"name":"Compras"}`)))
			status, _, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusForbidden))
		})

		It("should create update and delete sectors", func() {
			login("admin@empresa.com", "admin123")

			req := httptest.NewRequest(http.MethodPost, "/v1/sectors", bytes.NewReader([]byte(`{"name":"Compras","description":"Suprimentos"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusCreated))
			created := domain.Sector{}
			Expect(json.Unmarshal([]byte(body), &created)).To(BeNil())
			Expect(created.ID).To(HavePrefix("sector-"))

			req = httptest.NewRequest(http.MethodPatch, "/v1/sectors/"+created.ID, bytes.NewReader([]byte(`{"name":"Compras e Suprimentos"}`)))
			status, body, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"id":"` + created.ID + `","name":"Compras e Suprimentos","description":"Suprimentos"}`))

			status, _, _ = testinfra.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/v1/sectors/"+created.ID, nil), router)
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(service.ListSectors()).To(HaveLen(3))
		})
	})
})
