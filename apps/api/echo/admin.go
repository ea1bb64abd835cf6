package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/user"
)

// auditOrderingFields maps the public `ordering` fields to audit columns.
var auditOrderingFields = map[string]string{
	"timestamp": "created_at",
	"actor":     "actor",
	"action":    "action",
}

type adminApi struct {
	chatSvc     *chat.Service
	auditSvc    *audit.Service
	courseSvc   *course.Service
	userSvc     *user.Service
	coursesSeed []byte
}

func registerAdminAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, deps *Deps) {
	api := adminApi{
		chatSvc:     deps.ChatSvc,
		auditSvc:    deps.AuditSvc,
		courseSvc:   deps.CourseSvc,
		userSvc:     deps.UserSvc,
		coursesSeed: deps.CoursesSeed,
	}

	ag := g.Group("/admin", jwt, admin)
	ag.GET("/reported-messages", api.reportedMessages)
	ag.POST("/messages/:messageId/resolve", api.resolveMessage)
	ag.DELETE("/messages/:messageId", api.deleteMessage)
	ag.GET("/audit-logs", api.auditLogs)
	ag.POST("/seed", api.seed)
}

func (api *adminApi) actor(ctx echo.Context) (chat.Actor, error) {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return chat.Actor{}, errors.Wrap(err, "getting context user")
	}
	return chat.Actor{Name: usr.Name, IsAdmin: usr.IsAdmin()}, nil
}

func (api *adminApi) reportedMessages(ctx echo.Context) error {
	msgs, err := api.chatSvc.QueryReported(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "querying reported messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *adminApi) resolveMessage(ctx echo.Context) error {
	actor, err := api.actor(ctx)
	if err != nil {
		return err
	}
	if err = api.chatSvc.Resolve(requestContext(ctx), ctx.Param("messageId"), actor); err != nil {
		return errors.Wrap(err, "resolving message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) deleteMessage(ctx echo.Context) error {
	actor, err := api.actor(ctx)
	if err != nil {
		return err
	}
	if err = api.chatSvc.Delete(requestContext(ctx), "", ctx.Param("messageId"), actor); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// auditLogs supports `?limit=&actor=&action=&ordering=-timestamp,actor`.
func (api *adminApi) auditLogs(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	var ord Ordering
	ord.Bind(ctx, auditOrderingFields)

	events, err := api.auditSvc.QueryRecent(requestContext(ctx), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying audit events")
	}
	return ctx.JSON(http.StatusOK, events)
}

// seed upserts the course catalog. The request body, when present, replaces the bundled YAML catalog.
func (api *adminApi) seed(ctx echo.Context) error {
	data, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	if len(data) == 0 {
		data = api.coursesSeed
	}

	n, err := api.courseSvc.Seed(requestContext(ctx), data)
	if err != nil {
		return echo.NewHTTPError(errInvalidSeedData.Code, errInvalidSeedData.Message).SetInternal(err)
	}
	return ctx.JSON(http.StatusOK, SeedResponse{Courses: n})
}

type SeedResponse struct {
	Courses int `json:"courses"`
}
