package task

import (
	"net/http"
	"net/url"
	"strconv"

	"todo_api/internal/apperror"
	"todo_api/internal/auth"

	"github.com/gin-gonic/gin"
)

type TaskController struct {
	service TaskServiceInterface
}

func NewTaskController(service TaskServiceInterface) *TaskController {
	return &TaskController{
		service: service,
	}
}

// ListResponse is the pagination envelope for task lists
type ListResponse struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []*Task `json:"results"`
}

// SetupRoutes registers the task routes on rg. handlers run before every
// route and must include authentication.
func (tc *TaskController) SetupRoutes(rg *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	tasks := rg.Group("/tasks", handlers...)
	{
		tasks.GET("/", tc.ListTasks)
		tasks.POST("/", tc.CreateTask)
		tasks.GET("/:id/", tc.GetTask)
		tasks.PUT("/:id/", tc.UpdateTask)
		tasks.DELETE("/:id/", tc.DeleteTask)
	}
}

// ListTasks handles GET /tasks/ with filtering, search, ordering and pagination
func (tc *TaskController) ListTasks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	opts, err := ParseListOptions(c.Request.URL.Query())
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := tc.service.ListTasks(c.Request.Context(), userID, opts)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := ListResponse{
		Count:   page.Count,
		Results: page.Tasks,
	}
	if resp.Results == nil {
		resp.Results = []*Task{}
	}
	if page.HasNext() {
		next := pageURL(c, page.Number+1)
		resp.Next = &next
	}
	if page.HasPrevious() {
		previous := pageURL(c, page.Number-1)
		resp.Previous = &previous
	}

	c.JSON(http.StatusOK, resp)
}

// CreateTask handles task creation for the authenticated user
func (tc *TaskController) CreateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req TaskInput
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.FromBinding(err))
		return
	}

	task, err := tc.service.CreateTask(c.Request.Context(), userID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetTask returns one of the caller's tasks
func (tc *TaskController) GetTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := tc.service.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask replaces title, description and completed of one of the caller's tasks
func (tc *TaskController) UpdateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req TaskInput
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(apperror.FromBinding(err))
		return
	}

	task, err := tc.service.UpdateTask(c.Request.Context(), userID, taskID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask removes one of the caller's tasks
func (tc *TaskController) DeleteTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := tc.service.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func requireUser(c *gin.Context) (int, bool) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return 0, false
	}
	return userID, true
}

// taskIDParam parses :id. Anything that is not a positive integer cannot name
// a task, so it is reported as not found.
func taskIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		_ = c.Error(apperror.NotFound("Not found."))
		return 0, false
	}
	return id, true
}

// pageURL rebuilds the request URL with page replaced. Page 1 drops the
// parameter entirely.
func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := c.Request.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}
