package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core/roster"
	"github.com/trezcool/roster/core/student"
)

type studentApi struct {
	svc     *student.Service
	rosters *rosterRegistry
}

func registerStudentAPI(g *echo.Group, requireAuth []echo.MiddlewareFunc, api *studentApi) {
	sg := g.Group("/students", requireAuth...)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *studentApi) contextRoster(ctx echo.Context) (*roster.Roster, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context session")
	}
	return api.rosters.get(sess), nil
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	r, err := api.contextRoster(ctx)
	if err != nil {
		return err
	}
	if err = r.Load(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "loading roster")
	}
	return ctx.JSON(http.StatusOK, r.Students())
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.Data
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to student.Data")
	}
	r, err := api.contextRoster(ctx)
	if err != nil {
		return err
	}

	s, err := r.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.Data
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to student.Data")
	}
	r, err := api.contextRoster(ctx)
	if err != nil {
		return err
	}

	s, err := r.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	r, err := api.contextRoster(ctx)
	if err != nil {
		return err
	}
	if err = r.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
