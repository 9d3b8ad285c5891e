package echoapi

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/user"
)

const (
	importFilesField = "files"
	importWorkers    = 4
)

type lessonApi struct {
	svc         lesson.Service
	usrSvc      user.Service
	validate    *validator.Validate
	logger      core.Logger
	maxFileSize int64
}

func registerLessonAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc lesson.Service,
	usrSvc user.Service,
	validate *validator.Validate,
	logger core.Logger,
	maxFileSize int64,
) {
	api := lessonApi{
		svc:         svc,
		usrSvc:      usrSvc,
		validate:    validate,
		logger:      logger,
		maxFileSize: maxFileSize,
	}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass)
	cg.GET("/stats", api.stats)
	cg.POST("/import", api.importFiles)

	// detail endpoints
	dg := cg.Group("/:id", classOwnerMiddleware(svc, usrSvc))
	dg.GET("", api.retrieveClass)
	dg.PUT("", api.updateClass)
	dg.DELETE("", api.destroyClass)

	dg.POST("/lessons", api.createLesson)
	dg.GET("/lessons/:lessonId", api.retrieveLesson)
	dg.PUT("/lessons/:lessonId", api.updateLesson)
	dg.DELETE("/lessons/:lessonId", api.destroyLesson)
	dg.PUT("/lessons/:lessonId/status", api.setLessonStatus)
	dg.POST("/lessons/:lessonId/toggle", api.toggleLessonStatus)
	dg.GET("/lessons/:lessonId/slides", api.slides)
}

// ownerScope is the owner filter of the context user; admins see every class.
func (api *lessonApi) ownerScope(ctx echo.Context) (user.User, string, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return user.User{}, "", err
	}
	if ctxUsr.IsAdmin() {
		return ctxUsr, "", nil
	}
	return ctxUsr, ctxUsr.ID, nil
}

// Handlers

func (api *lessonApi) queryClasses(ctx echo.Context) error {
	_, ownerID, err := api.ownerScope(ctx)
	if err != nil {
		return err
	}

	var filter lesson.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []lesson.Class{})
	}
	filter.OwnerID = ownerID

	classes, err := api.svc.QueryClasses(filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []lesson.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *lessonApi) createClass(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data lesson.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.CreateClass(ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *lessonApi) stats(ctx echo.Context) error {
	_, ownerID, err := api.ownerScope(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.Stats(ownerID)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *lessonApi) retrieveClass(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *lessonApi) updateClass(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}

	var data lesson.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err = api.svc.UpdateClass(cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *lessonApi) destroyClass(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteClass(cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) createLesson(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}

	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.CreateLesson(cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *lessonApi) retrieveLesson(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	l, err := api.svc.GetLesson(cls.ID, ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) updateLesson(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}

	var data lesson.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.UpdateLesson(cls.ID, ctx.Param("lessonId"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) destroyLesson(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteLesson(cls.ID, ctx.Param("lessonId")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) setLessonStatus(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}

	var data lesson.LessonStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.SetLessonStatus(cls.ID, ctx.Param("lessonId"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting lesson status")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) toggleLessonStatus(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}
	l, err := api.svc.ToggleLessonStatus(cls.ID, ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "toggling lesson status")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) slides(ctx echo.Context) error {
	cls, err := contextClass(ctx)
	if err != nil {
		return err
	}

	limit, err := intQueryParam(ctx, "limit", 0)
	if err != nil {
		return err
	}
	if limit < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be positive"})
	}
	index, err := intQueryParam(ctx, "index", 0)
	if err != nil {
		return err
	}

	deck, err := api.svc.Slides(cls.ID, ctx.Param("lessonId"), limit, index)
	if err != nil {
		return errors.Wrap(err, "paginating lesson")
	}
	return ctx.JSON(http.StatusOK, deck)
}

// importFiles turns every uploaded document into a class.
// Files are imported concurrently; one failing file does not stop the others.
func (api *lessonApi) importFiles(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: importFilesField, Error: "a multipart form is required"})
	}
	files := form.File[importFilesField]
	if len(files) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: importFilesField, Error: "no files uploaded"})
	}

	results, err := api.importAll(ctx.Request().Context(), ctxUsr.ID, files)
	if err != nil {
		return err
	}

	resp := ImportResponse{Results: results}
	for _, res := range results {
		if res.Class != nil {
			resp.Imported++
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

// importAll imports files with at most importWorkers running at once.
// Results keep the order of files. Every started import has finished when it returns.
func (api *lessonApi) importAll(ctx context.Context, ownerID string, files []*multipart.FileHeader) ([]ImportResult, error) {
	results := make([]ImportResult, len(files))
	sem := semaphore.NewWeighted(importWorkers)
	g, gctx := errgroup.WithContext(ctx)

	var acquireErr error
	for i, fh := range files {
		i, fh := i, fh
		if acquireErr = sem.Acquire(gctx, 1); acquireErr != nil {
			break // request cancelled
		}
		g.Go(func() error {
			defer sem.Release(1)
			results[i] = api.importFile(gctx, ownerID, fh)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "importing files")
	}
	if acquireErr != nil {
		return nil, errors.Wrap(acquireErr, "importing files")
	}
	return results, nil
}

func (api *lessonApi) importFile(ctx context.Context, ownerID string, fh *multipart.FileHeader) ImportResult {
	res := ImportResult{File: fh.Filename}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	if !lesson.SupportedExtension(fh.Filename) {
		res.Error = lesson.ErrUnsupportedFormat.Error()
		return res
	}
	if api.maxFileSize > 0 && fh.Size > api.maxFileSize {
		res.Error = fmt.Sprintf("file is larger than %d bytes", api.maxFileSize)
		return res
	}

	f, err := fh.Open()
	if err != nil {
		res.Error = "could not read file"
		api.logger.Error("opening upload "+fh.Filename, err)
		return res
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	cls, err := api.svc.Import(ownerID, fh.Filename, fh.Size, f)
	if err != nil {
		res.Error = importErrorText(err)
		if res.Error == "" {
			res.Error = "import failed"
			api.logger.Error("importing "+fh.Filename, err)
		}
		return res
	}
	res.Class = &cls
	return res
}

// importErrorText is the client-facing message of err, "" for server errors.
func importErrorText(err error) string {
	switch cause := errors.Cause(err).(type) {
	case *core.ValidationError:
		if len(cause.Fields) > 0 {
			return cause.Fields[0].Error
		}
		return cause.Error()
	default:
		if cause == lesson.ErrUnsupportedFormat {
			return cause.Error()
		}
	}
	return ""
}

type (
	ImportResult struct {
		File  string        `json:"file"`
		Class *lesson.Class `json:"class,omitempty"`
		Error string        `json:"error,omitempty"`
	}

	ImportResponse struct {
		Imported int            `json:"imported"`
		Results  []ImportResult `json:"results"`
	}
)
