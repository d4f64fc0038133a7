package user

import (
	"net/http"

	"todo_api/internal/apperror"
	"todo_api/internal/auth"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	userService UserServiceInterface
}

func NewUserController(userService UserServiceInterface) *UserController {
	return &UserController{
		userService: userService,
	}
}

// SetupRoutes registers the anonymous auth routes on rg
func (a *UserController) SetupRoutes(rg *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	authGroup := rg.Group("/auth", handlers...)
	{
		authGroup.POST("/register/", a.Register)
		authGroup.POST("/login/", a.Login)
		authGroup.POST("/refresh/", a.RefreshToken)
	}
}

// SetupProtectedRoutes registers the auth routes that need a bearer token.
// handlers must include authentication.
func (a *UserController) SetupProtectedRoutes(rg *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	rg.Group("/auth", handlers...).GET("/me/", a.Me)
}

// Register handles user registration
func (a *UserController) Register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.FromBinding(err))
		return
	}

	resp, err := a.userService.Register(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles user login and returns a bearer token
func (a *UserController) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}

	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.FromBinding(err))
		return
	}

	resp, err := a.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RefreshToken exchanges a refresh token for a new token pair
func (a *UserController) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" form:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.FromBinding(err))
		return
	}

	resp, err := a.userService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user
func (a *UserController) Me(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		_ = c.Error(apperror.Authentication("Authentication credentials were not provided."))
		return
	}

	user, err := a.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}
