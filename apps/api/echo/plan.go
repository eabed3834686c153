package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core"
	"github.com/kahero/ratiba/core/plan"
	"github.com/kahero/ratiba/core/user"
)

type planApi struct {
	svc    *plan.Service
	usrSvc *user.Service
}

func registerPlanAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *plan.Service, usrSvc *user.Service, identity *SessionIdentity) {
	api := planApi{svc: svc, usrSvc: usrSvc}

	ug := g.Group("/units/:id", jwt, identityMiddleware(identity))

	// any authed user
	ug.GET("/plan/exists", api.exists)
	ug.GET("/plan/progress", api.progress)

	// lecturer planner
	lg := ug.Group("", lecturerMiddleware())
	lg.GET("/plan", api.retrieve)
	lg.PUT("/plan", api.save)
	lg.DELETE("/plan", api.destroy)
	lg.POST("/plan/weeks/:week/items", api.createItem)
	lg.POST("/exams/:examID/submit", api.submitExam)

	// student view
	ug.GET("/plan/student", api.retrieveStudentView, studentMiddleware())

	// HOD review
	hg := ug.Group("/exams/:examID", hodMiddleware())
	hg.POST("/approve", api.approveExam)
	hg.POST("/reject", api.rejectExam)
}

// Handlers

func (api *planApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) save(ctx echo.Context) error {
	var p plan.SemesterPlan
	if err := ctx.Bind(&p); err != nil {
		return errors.Wrap(err, "binding to SemesterPlan")
	}
	if err := api.svc.SetPlan(ctx.Request().Context(), ctx.Param("id"), p); err != nil {
		return errors.Wrap(err, "saving plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *planApi) destroy(ctx echo.Context) error {
	if err := api.svc.ClearPlan(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "clearing plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *planApi) exists(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ExistsResponse{Exists: api.svc.HasPlan(ctx.Param("id"))})
}

func (api *planApi) progress(ctx echo.Context) error {
	pct, err := api.svc.Progress(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	return ctx.JSON(http.StatusOK, ProgressResponse{Progress: pct})
}

func (api *planApi) retrieveStudentView(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	p, err := api.svc.GetStudentPlan(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting student plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *planApi) createItem(ctx echo.Context) error {
	var data CreateItemRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateItemRequest")
	}

	week, err := intParam(ctx, "week")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "week", Error: "must be a number"})
	}

	payload, err := data.payload()
	if err != nil {
		return err
	}

	item, err := api.svc.CreateItem(ctx.Request().Context(), ctx.Param("id"), week, data.Kind, payload)
	if err != nil {
		if errors.Cause(err) == plan.ErrUnknownKind {
			return core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "unsupported content kind"})
		}
		return errors.Wrap(err, "creating item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *planApi) submitExam(ctx echo.Context) error {
	exam, err := api.svc.SubmitExamForApproval(ctx.Request().Context(), ctx.Param("id"), ctx.Param("examID"))
	if err != nil {
		return errors.Wrap(err, "submitting exam")
	}
	return ctx.JSON(http.StatusOK, exam)
}

func (api *planApi) approveExam(ctx echo.Context) error {
	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	exam, err := api.svc.ApproveExam(ctx.Request().Context(), ctx.Param("id"), ctx.Param("examID"), claims.Subject, data.Comments)
	if err != nil {
		return errors.Wrap(err, "approving exam")
	}
	return ctx.JSON(http.StatusOK, exam)
}

func (api *planApi) rejectExam(ctx echo.Context) error {
	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}

	exam, err := api.svc.RejectExam(ctx.Request().Context(), ctx.Param("id"), ctx.Param("examID"), data.Reason, data.Comments)
	if err != nil {
		return errors.Wrap(err, "rejecting exam")
	}
	return ctx.JSON(http.StatusOK, exam)
}

type (
	ExistsResponse struct {
		Exists bool `json:"exists"`
	}

	ProgressResponse struct {
		Progress int `json:"progress"`
	}

	CreateItemRequest struct {
		Kind plan.ItemKind   `json:"kind"`
		Item json.RawMessage `json:"item"`
	}

	ReviewRequest struct {
		Reason   string `json:"reason"`
		Comments string `json:"comments"`
	}
)

// payload decodes the raw item into the creation payload matching Kind.
func (r *CreateItemRequest) payload() (interface{}, error) {
	var payload interface{}
	switch r.Kind {
	case plan.KindNotes, plan.KindMaterial:
		payload = new(plan.NewMaterial)
	case plan.KindAssignment:
		payload = new(plan.NewAssignment)
	case plan.KindExam, plan.KindCAT:
		payload = new(plan.NewExam)
	case plan.KindAttendance:
		payload = new(plan.NewAttendanceSession)
	case plan.KindOnlineClass:
		payload = new(plan.NewOnlineClass)
	default:
		return nil, core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "unsupported content kind"})
	}

	if err := json.Unmarshal(r.Item, payload); err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "decoding item"))
	}
	return payload, nil
}
