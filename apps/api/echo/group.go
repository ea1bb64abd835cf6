package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
)

type groupApi struct {
	svc     *group.Service
	chatSvc *chat.Service
	userSvc *user.Service
}

func registerGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := groupApi{
		svc:     deps.GroupSvc,
		chatSvc: deps.ChatSvc,
		userSvc: deps.UserSvc,
	}

	gg := g.Group("/groups", jwt)
	gg.GET("/:groupId", api.retrieve)
	gg.POST("/:groupId/join", api.join)
	gg.POST("/:groupId/leave", api.leave)
	gg.POST("/:groupId/toggle", api.toggle)
}

// courseHint is the optional `?course=` query param used to look the group up in its course first.
func courseHint(ctx echo.Context) string {
	return ctx.QueryParam("course")
}

// retrieve returns the group. Messages are included for members and admins only.
func (api *groupApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqCtx := requestContext(ctx)
	grp, err := api.svc.Get(reqCtx, courseHint(ctx), ctx.Param("groupId"))
	if err != nil {
		return errors.Wrap(err, "finding group")
	}

	resp := GroupDetail{Group: grp, IsMember: grp.HasMember(usr.Name), MaxSize: group.MaxSize}
	if resp.IsMember || usr.IsAdmin() {
		if resp.Messages, err = api.chatSvc.Query(reqCtx, grp.ID); err != nil {
			return errors.Wrap(err, "querying messages")
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *groupApi) join(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grp, err := api.svc.Join(requestContext(ctx), courseHint(ctx), ctx.Param("groupId"), usr.Name)
	if err != nil {
		return errors.Wrap(err, "joining group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) leave(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	result, err := api.svc.Leave(requestContext(ctx), courseHint(ctx), ctx.Param("groupId"), usr.Name)
	if err != nil {
		return errors.Wrap(err, "leaving group")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *groupApi) toggle(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grp, err := api.svc.ToggleStatus(requestContext(ctx), courseHint(ctx), ctx.Param("groupId"), usr.Name)
	if err != nil {
		return errors.Wrap(err, "toggling group status")
	}
	return ctx.JSON(http.StatusOK, grp)
}

type GroupDetail struct {
	group.Group
	MaxSize  int            `json:"maxSize"`
	IsMember bool           `json:"isMember"`
	Messages []chat.Message `json:"messages,omitempty"`
}
