package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"taskwatch/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, passes PassRunner, broker *AlertBroker, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(store, passes, logger))
	e.POST("/api/tasks", postTask(store, passes))
	e.PUT("/api/tasks/:id", putTask(store, passes))
	e.POST("/api/tasks/:id/toggle", toggleTask(store, passes))
	e.DELETE("/api/tasks/:id", deleteTask(store, passes))
	e.GET("/api/alerts", streamAlerts(broker))
	e.GET("/healthz", healthz(store))
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

func healthz(_ Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		//TODO: implement healthcheck
		return c.NoContent(http.StatusOK)
	}
}

// runPassTail runs one synchronous evaluation pass at the end of a handled
// request. Every user interaction triggers a pass, whatever the outcome of
// the request itself; pass failures never surface into the response.
func runPassTail(ctx context.Context, passes PassRunner) {
	if passes == nil {
		return
	}
	if err := passes.RunPass(ctx); err != nil {
		log.WithError(err).Error("deadline pass failed")
	}
}

func getTasks(store Storage, passes PassRunner, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		defer runPassTail(ctx, passes)
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		view, parseErr := domain.ParseView(c.QueryParam("view"))
		if parseErr != nil {
			metrics.SetErrorStage("invalid_view")
			err = c.String(http.StatusBadRequest, parseErr.Error())
			return err
		}
		metrics.SetView(string(view))

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		tasks = domain.Filter(tasks, view, time.Now())
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func postTask(store Storage, passes PassRunner) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		defer runPassTail(ctx, passes)

		lr := io.LimitReader(c.Request().Body, taskBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req createTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		input, err := req.toInput(time.Now())
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		created, err := store.CreateTask(ctx, input)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func putTask(store Storage, passes PassRunner) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		defer runPassTail(ctx, passes)

		lr := io.LimitReader(c.Request().Body, taskBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req updateTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := req.toTask(c.Param("id"))
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		// A replacement aimed at an absent id is a silent no-op.
		if err := store.UpdateTask(ctx, task); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func toggleTask(store Storage, passes PassRunner) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		defer runPassTail(ctx, passes)

		// Toggling reads the current fields and writes every one of them
		// back; a concurrent update landing between the read and the write
		// is overwritten.
		task, err := store.GetTask(ctx, c.Param("id"))
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if task == nil {
			return c.String(http.StatusNotFound, "task not found")
		}
		task.Completed = !task.Completed
		if err := store.UpdateTask(ctx, *task); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, passes PassRunner) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		defer runPassTail(ctx, passes)

		if err := store.DeleteTask(ctx, c.Param("id")); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}
