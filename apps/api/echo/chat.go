package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
)

type chatApi struct {
	svc      *chat.Service
	groupSvc *group.Service
	userSvc  *user.Service
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := chatApi{svc: deps.ChatSvc, groupSvc: deps.GroupSvc, userSvc: deps.UserSvc}

	mg := g.Group("/groups/:groupId/messages", jwt)
	mg.GET("", api.list)
	mg.POST("", api.create)
	mg.POST("/:messageId/report", api.report)
	mg.DELETE("/:messageId", api.delete)

	g.POST("/messages/:messageId/reactions", api.toggleReaction, jwt)
}

func (api *chatApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reqCtx := requestContext(ctx)
	grp, err := api.groupSvc.Get(reqCtx, courseHint(ctx), ctx.Param("groupId"))
	if err != nil {
		return errors.Wrap(err, "finding group")
	}
	if !usr.IsAdmin() && !grp.HasMember(usr.Name) {
		return core.ErrNotMember
	}

	msgs, err := api.svc.Query(reqCtx, grp.ID)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data chat.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}

	msg, err := api.svc.Add(requestContext(ctx), ctx.Param("groupId"), usr.Name, data)
	if err != nil {
		return errors.Wrap(err, "posting message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) report(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Report(requestContext(ctx), ctx.Param("groupId"), ctx.Param("messageId"), usr.Name); err != nil {
		return errors.Wrap(err, "reporting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) delete(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	actor := chat.Actor{Name: usr.Name, IsAdmin: usr.IsAdmin()}
	if err = api.svc.Delete(requestContext(ctx), ctx.Param("groupId"), ctx.Param("messageId"), actor); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) toggleReaction(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ReactionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReactionRequest")
	}

	action, err := api.svc.ToggleReaction(requestContext(ctx), ctx.Param("messageId"), usr.Name, data.Emoji)
	if err != nil {
		return errors.Wrap(err, "toggling reaction")
	}
	return ctx.JSON(http.StatusOK, ReactionResponse{Action: action})
}

type (
	ReactionRequest struct {
		Emoji string `json:"emoji"`
	}

	ReactionResponse struct {
		Action chat.ReactionAction `json:"action"`
	}
)
