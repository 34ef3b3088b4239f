package servehttp

import (
	"net/http"
	"procurement/account"
	"procurement/requests"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Status is what a front end needs before its first page: whether data is still
// loading, whether the tables must be created first and why the backend is unreachable.
type Status struct {
	Loading         bool     `json:"loading"`
	SetupRequired   bool     `json:"setupRequired"`
	MissingTables   []string `json:"missingTables"`
	ConnectionError string   `json:"connectionError,omitempty"`
}

func RegisterStatusHandler(r *gin.Engine, accounts *account.Service, reqs *requests.Service) {
	handler := &statusHandler{accounts: accounts, requests: reqs}
	r.GET("/v1/status", handler.handleDetail)
	r.POST("/v1/status/retry", handler.handleRetry)
}

type statusHandler struct {
	accounts *account.Service
	requests *requests.Service
}

func (h *statusHandler) status() Status {
	a, q := h.accounts.State(), h.requests.State()
	missing := append(append([]string{}, a.MissingTables...), q.MissingTables...)
	sort.Strings(missing)

	s := Status{
		Loading:         a.Loading || q.Loading,
		SetupRequired:   len(missing) > 0,
		MissingTables:   missing,
		ConnectionError: a.ConnectionError,
	}
	if s.ConnectionError == "" {
		s.ConnectionError = q.ConnectionError
	}
	return s
}

func (h *statusHandler) handleDetail(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

// handleRetry reloads both groups, the outcome is reported through the returned status.
func (h *statusHandler) handleRetry(c *gin.Context) {
	if err := h.accounts.Retry(c.Request.Context()); err != nil {
		logrus.WithError(err).Warn("retry of users and sectors failed")
	}
	if err := h.requests.Retry(c.Request.Context()); err != nil {
		logrus.WithError(err).Warn("retry of requests and configuration failed")
	}
	c.JSON(http.StatusOK, h.status())
}
