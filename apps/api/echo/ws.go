package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
)

type liveApi struct {
	groupSvc   *group.Service
	userSvc    *user.Service
	subscriber Subscriber
}

func registerLiveAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	if deps.Subscriber == nil {
		return
	}
	api := liveApi{groupSvc: deps.GroupSvc, userSvc: deps.UserSvc, subscriber: deps.Subscriber}
	g.GET("/groups/:groupId/ws", api.subscribe, jwt)
}

// subscribe upgrades the request to a websocket streaming the group's live events.
// The token is passed as `?token=`.
func (api *liveApi) subscribe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	grp, err := api.groupSvc.Get(requestContext(ctx), courseHint(ctx), ctx.Param("groupId"))
	if err != nil {
		return errors.Wrap(err, "finding group")
	}
	if !grp.HasMember(usr.Name) && !usr.IsAdmin() {
		return core.ErrNotMember
	}

	if err = api.subscriber.Serve(ctx.Response(), ctx.Request(), grp.ID, usr.Name); err != nil {
		if ctx.Response().Committed { // the upgrader already replied
			ctx.Logger().Warn(errors.Wrap(err, "subscribing to group"))
			return nil
		}
		return errors.Wrap(err, "subscribing to group")
	}
	return nil
}
