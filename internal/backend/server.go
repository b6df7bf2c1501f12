// Package backend serves the users REST API over internal/store.
// The bulk route is only mounted when the store has bulk updates enabled,
// so by default PUT /users/bulk answers 404 like the real backend does.
package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kittclouds/usergrid/internal/store"
	"github.com/kittclouds/usergrid/pkg/logging"
	"github.com/kittclouds/usergrid/pkg/records"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserController handles the /users routes.
type UserController struct {
	store  store.Storer
	logger *slog.Logger
}

// NewUserController creates a controller over s.
func NewUserController(s store.Storer, logger *slog.Logger) *UserController {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UserController{store: s, logger: logger}
}

// NewRouter builds a gin engine with the users routes mounted.
func NewRouter(s store.Storer, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	UserRouters(r, NewUserController(s, logger))
	return r
}

// UserRouters mounts the users API on r.
func UserRouters(r *gin.Engine, uc *UserController) {
	userRouter := r.Group("/users")
	{
		userRouter.GET("", uc.List)
		userRouter.PUT("/:id", uc.Update)
	}
	if uc.store.BulkEnabled() {
		userRouter.PUT("/bulk", uc.UpdateBulk)
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
}

// List answers GET /users.
func (uc *UserController) List(c *gin.Context) {
	list, err := uc.store.FetchAll(c.Request.Context())
	if err != nil {
		uc.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Update answers PUT /users/:id. The path id wins over the body id.
func (uc *UserController) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		// Also catches /users/bulk while the bulk route is not mounted.
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}

	var r records.Record
	if err := c.ShouldBindJSON(&r); err != nil {
		uc.fail(c, http.StatusBadRequest, err)
		return
	}
	r.ID = id

	saved, err := uc.store.Update(c.Request.Context(), r)
	if err != nil {
		var nf store.ErrNotFound
		if errors.As(err, &nf) {
			uc.fail(c, http.StatusNotFound, err)
			return
		}
		uc.fail(c, http.StatusInternalServerError, err)
		return
	}

	uc.logger.Info("user updated", "id", id, "request_id", c.GetHeader("X-Request-ID"))
	c.JSON(http.StatusOK, saved)
}

// UpdateBulk answers PUT /users/bulk with an id-keyed object.
func (uc *UserController) UpdateBulk(c *gin.Context) {
	var body map[int]records.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		uc.fail(c, http.StatusBadRequest, err)
		return
	}

	saved, err := uc.store.UpdateBulk(c.Request.Context(), body)
	switch {
	case errors.Is(err, store.ErrBulkUnsupported):
		uc.fail(c, http.StatusNotImplemented, err)
		return
	case err != nil:
		var nf store.ErrNotFound
		if errors.As(err, &nf) {
			uc.fail(c, http.StatusNotFound, err)
			return
		}
		uc.fail(c, http.StatusInternalServerError, err)
		return
	}

	uc.logger.Info("users bulk updated", "count", len(saved), "request_id", c.GetHeader("X-Request-ID"))
	c.JSON(http.StatusOK, saved)
}

func (uc *UserController) fail(c *gin.Context, status int, err error) {
	uc.logger.Warn("request failed", "method", c.Request.Method, "path", c.Request.URL.Path,
		"status", status, "error", err)
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
