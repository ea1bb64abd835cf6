package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
)

type userApi struct {
	svc        *user.Service
	groupSvc   *group.Service
	chatSvc    *chat.Service
	subscriber Subscriber
	validate   *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, validate *validator.Validate) {
	api := userApi{
		svc:        deps.UserSvc,
		groupSvc:   deps.GroupSvc,
		chatSvc:    deps.ChatSvc,
		subscriber: deps.Subscriber,
		validate:   validate,
	}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	// current user
	ug := g.Group("/user", jwt)
	ug.GET("", api.retrieve)
	ug.PUT("/name", api.rename)
	ug.GET("/groups", api.queryGroups)
	ug.GET("/courses/:courseCode", api.courseGroup)

	g.GET("/users/:userName/profile", api.profile, jwt)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(requestContext(ctx), data.Name, data.Password, data.CreateIfMissing)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{UserName: usr.Name, IsAdmin: usr.IsAdmin(), Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) rename(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.RenameUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RenameUser")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	oldName := usr.Name
	if usr, err = api.svc.Rename(requestContext(ctx), oldName, data); err != nil {
		return errors.Wrap(err, "renaming user")
	}
	if api.subscriber != nil {
		api.subscriber.Rename(oldName, usr.Name)
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{UserName: usr.Name, IsAdmin: usr.IsAdmin(), Token: token})
}

func (api *userApi) queryGroups(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	memberships, err := api.groupSvc.QueryUserGroups(requestContext(ctx), usr.Name)
	if err != nil {
		return errors.Wrap(err, "querying user groups")
	}
	return ctx.JSON(http.StatusOK, memberships)
}

func (api *userApi) courseGroup(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	groupID, err := api.groupSvc.MemberGroupID(requestContext(ctx), ctx.Param("courseCode"), usr.Name)
	if err != nil {
		return errors.Wrap(err, "finding course group")
	}

	resp := CourseGroupResponse{}
	if groupID != "" {
		resp.GroupID = &groupID
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) profile(ctx echo.Context) error {
	reqCtx := requestContext(ctx)

	usr, err := api.svc.GetByName(reqCtx, ctx.Param("userName"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.ErrUserNotFound
		}
		return errors.Wrap(err, "finding user by name")
	}

	lastActivity, err := api.chatSvc.LastActivity(reqCtx, usr.Name)
	if err != nil {
		return errors.Wrap(err, "finding last activity")
	}
	memberships, err := api.groupSvc.QueryUserGroups(reqCtx, usr.Name)
	if err != nil {
		return errors.Wrap(err, "querying user groups")
	}

	return ctx.JSON(http.StatusOK, ProfileResponse{
		UserName:     usr.Name,
		MemberSince:  usr.CreatedAt,
		LastActivity: lastActivity,
		Groups:       memberships,
	})
}

type (
	LoginResponse struct {
		UserName string `json:"userName"`
		IsAdmin  bool   `json:"isAdmin"`
		Token    string `json:"token"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	CourseGroupResponse struct {
		GroupID *string `json:"groupId"`
	}

	ProfileResponse struct {
		UserName     string             `json:"userName"`
		MemberSince  time.Time          `json:"memberSince"`
		LastActivity *chat.LastActivity `json:"lastActivity"`
		Groups       []group.Membership `json:"groups"`
	}
)
