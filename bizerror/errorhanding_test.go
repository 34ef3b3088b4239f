package bizerror_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"procurement/bizerror"
	"procurement/testinfra"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func newRouter(err error) *gin.Engine {
	router := gin.New()
	router.Use(bizerror.ErrorHandling())
	router.GET("/panic", func(c *gin.Context) {
		panic(err)
	})
	router.GET("/errors", func(c *gin.Context) {
		_ = c.Error(err)
	})
	return router
}

func TestErrorHandling(t *testing.T) {
	RegisterTestingT(t)

	cases := []struct {
		err    error
		status int
		body   string
	}{
		{bizerror.ErrUnauthenticated, http.StatusUnauthorized, `{"code":"common.unauthenticated","message":"unauthenticated","data":null}`},
		{bizerror.ErrForbidden, http.StatusForbidden, `{"code":"security.forbidden","message":"access forbidden","data":null}`},
		{fmt.Errorf("request 3: %w", bizerror.ErrNotFound), http.StatusNotFound, `{"code":"common.record_not_found","message":"record not found","data":null}`},
		{bizerror.ErrSchemaNotReady, http.StatusServiceUnavailable, `{"code":"setup.schema_not_ready","message":"database tables are missing, setup required","data":null}`},
		{fmt.Errorf("%w: Fornecedor", bizerror.ErrRequiredField), http.StatusBadRequest, `{"code":"request.required_field","message":"required field is empty: Fornecedor","data":null}`},
		{&bizerror.ErrBadParam{Cause: errors.New("invalid id 'abc'")}, http.StatusBadRequest, `{"code":"common.bad_param","message":"invalid id 'abc'","data":null}`},
		{errors.New("boom"), http.StatusInternalServerError, `{"code":"common.internal_server_error","message":"boom","data":null}`},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			for _, path := range []string{"/panic", "/errors"} {
				status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, path, nil), newRouter(tc.err))
				Expect(status).To(Equal(tc.status))
				Expect(body).To(MatchJSON(tc.body))
			}
		})
	}
}
