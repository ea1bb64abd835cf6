package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
)

type courseApi struct {
	svc      *course.Service
	groupSvc *group.Service
	userSvc  *user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, validate *validator.Validate) {
	api := courseApi{
		svc:      deps.CourseSvc,
		groupSvc: deps.GroupSvc,
		userSvc:  deps.UserSvc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.list)
	cg.GET("/:courseCode", api.retrieve)
	cg.POST("/:courseCode/groups", api.createGroup)
}

func (api *courseApi) list(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	reqCtx := requestContext(ctx)

	crs, err := api.svc.Get(reqCtx, ctx.Param("courseCode"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	groups, err := api.groupSvc.QueryByCourse(reqCtx, crs.Code)
	if err != nil {
		return errors.Wrap(err, "querying course groups")
	}
	roster, err := api.svc.RosterWithStatus(reqCtx, crs.Code)
	if err != nil {
		return errors.Wrap(err, "querying course roster")
	}

	return ctx.JSON(http.StatusOK, CourseDetail{Course: crs, Groups: groups, Roster: roster})
}

func (api *courseApi) createGroup(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data group.NewGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.groupSvc.Create(requestContext(ctx), ctx.Param("courseCode"), data, usr.Name)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

// CourseDetail is a course page: its groups, newest first, and everyone who engaged with it.
type CourseDetail struct {
	Course course.Course        `json:"course"`
	Groups []group.Summary      `json:"groups"`
	Roster []course.RosterEntry `json:"roster"`
}
