package httpadapter

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/taskbot/internal/app/dates"
	"github.com/PabloGalante/taskbot/internal/app/tasks"
	"github.com/PabloGalante/taskbot/internal/domain"
	"github.com/PabloGalante/taskbot/internal/observability"
)

const ownerKey = "owner"

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type taskResponse struct {
	ID              string    `json:"id"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	DueDate         time.Time `json:"dueDate"`
	Course          *string   `json:"course,omitempty"`
	Repeat          string    `json:"repeat"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
	IsOverdue       bool      `json:"isOverdue"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type listResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Total   int            `json:"total"`
	HasMore bool           `json:"hasMore"`
	Data    []taskResponse `json:"data"`
}

type createTaskRequest struct {
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Course      string `json:"course"`
	Repeat      string `json:"repeat"`
}

type updateTaskRequest struct {
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	Course      *string `json:"course"`
	Repeat      *string `json:"repeat"`
}

type updateOwnerRequest struct {
	Name         *string `json:"name"`
	CalendarSync *bool   `json:"calendarSync"`
}

type ownerResponse struct {
	ID           string    `json:"id"`
	PhoneNumber  string    `json:"phoneNumber"`
	Name         string    `json:"name"`
	CalendarSync bool      `json:"calendarSync"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

func (s *Server) toTaskResponse(t *domain.Task, now time.Time) taskResponse {
	loc := s.tasks.Location()
	return taskResponse{
		ID:              string(t.ID),
		Description:     t.Description,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		DueDate:         t.DueDate.In(loc),
		Course:          t.Course,
		Repeat:          string(t.Repeat),
		CalendarEventID: t.CalendarEventID,
		IsOverdue:       t.IsOverdue(now),
		CreatedAt:       t.CreatedAt.In(loc),
		UpdatedAt:       t.UpdatedAt.In(loc),
	}
}

func (s *Server) toListResponse(res *tasks.ListResult) listResponse {
	now := s.tasks.Now()
	data := make([]taskResponse, 0, len(res.Tasks))
	for _, t := range res.Tasks {
		data = append(data, s.toTaskResponse(t, now))
	}
	return listResponse{
		Success: true,
		Count:   len(data),
		Total:   res.Total,
		HasMore: res.HasMore,
		Data:    data,
	}
}

// ─────────────────────────────────────────────
// Owner resolution
// ─────────────────────────────────────────────

// requireOwner resolves the phoneNumber query parameter to an owner.
func (s *Server) requireOwner(c *gin.Context) {
	phone := c.Query("phoneNumber")
	if strings.TrimSpace(phone) == "" {
		badRequest(c, "Phone number is required")
		c.Abort()
		return
	}
	owner, err := s.tasks.Owner(c.Request.Context(), phone)
	if err != nil {
		writeError(c, err)
		c.Abort()
		return
	}
	c.Set(ownerKey, owner)
	c.Next()
}

func ownerFrom(c *gin.Context) *domain.Owner {
	return c.MustGet(ownerKey).(*domain.Owner)
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleListTasks(c *gin.Context) {
	q, err := s.parseTaskQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.tasks.List(c.Request.Context(), ownerFrom(c), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toListResponse(res))
}

func (s *Server) handleTodayTasks(c *gin.Context) {
	res, err := s.tasks.ListDueToday(c.Request.Context(), ownerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toListResponse(res))
}

func (s *Server) handleGetTask(c *gin.Context) {
	t, err := s.tasks.Get(c.Request.Context(), ownerFrom(c), domain.TaskID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.toTaskResponse(t, s.tasks.Now())})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	due, err := s.parseDue(req.DueDate)
	if err != nil {
		writeError(c, err)
		return
	}

	t, err := s.tasks.Create(c.Request.Context(), ownerFrom(c), tasks.Draft{
		Description: req.Description,
		DueDate:     due,
		Priority:    req.Priority,
		Status:      req.Status,
		Repeat:      req.Repeat,
		Course:      req.Course,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": s.toTaskResponse(t, s.tasks.Now())})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	patch := tasks.Patch{
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Repeat:      req.Repeat,
		Course:      req.Course,
	}
	if req.DueDate != nil {
		due, err := s.parseDue(*req.DueDate)
		if err != nil {
			writeError(c, err)
			return
		}
		patch.DueDate = &due
	}

	t, err := s.tasks.Update(c.Request.Context(), ownerFrom(c), domain.TaskID(c.Param("id")), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.toTaskResponse(t, s.tasks.Now())})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id := domain.TaskID(c.Param("id"))
	removed, err := s.tasks.Delete(c.Request.Context(), ownerFrom(c), tasks.Ref{ID: id})
	if err != nil {
		writeError(c, err)
		return
	}
	if !removed {
		writeError(c, &domain.NotFoundError{Kind: "task", Ref: string(id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (s *Server) handleUpdateOwner(c *gin.Context) {
	var req updateOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	o, err := s.tasks.UpdateOwner(c.Request.Context(), ownerFrom(c), req.Name, req.CalendarSync)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": ownerResponse{
		ID:           string(o.ID),
		PhoneNumber:  o.PhoneKey,
		Name:         o.Name,
		CalendarSync: o.CalendarSync,
		CreatedAt:    o.CreatedAt,
		LastActiveAt: o.LastActiveAt,
	}})
}

// ─────────────────────────────────────────────
// Parsing
// ─────────────────────────────────────────────

func (s *Server) parseTaskQuery(c *gin.Context) (domain.TaskQuery, error) {
	var (
		q        domain.TaskQuery
		problems []string
	)

	if v := c.Query("status"); v != "" {
		st, ok := domain.ParseStatus(v)
		if !ok {
			problems = append(problems, "invalid status: "+v)
		}
		q.Filter.Status = st
	}
	if v := c.Query("priority"); v != "" {
		p, ok := domain.ParsePriority(v)
		if !ok {
			problems = append(problems, "invalid priority: "+v)
		}
		q.Filter.Priority = p
	}
	q.Filter.Course = strings.TrimSpace(c.Query("course"))

	if v := c.Query("startDate"); v != "" {
		t, dateOnly, err := s.parseTime(v)
		if err != nil {
			problems = append(problems, "invalid startDate: "+v)
		} else {
			if dateOnly {
				t = dates.StartOfDay(t)
			}
			q.Filter.DueFrom = &t
		}
	}
	if v := c.Query("endDate"); v != "" {
		t, dateOnly, err := s.parseTime(v)
		if err != nil {
			problems = append(problems, "invalid endDate: "+v)
		} else {
			if dateOnly {
				_, t = dates.DayBounds(t)
			}
			q.Filter.DueTo = &t
		}
	}

	if v := c.Query("sort"); v != "" {
		f, ok := domain.ParseSortField(v)
		if !ok {
			problems = append(problems, "invalid sort: "+v)
		}
		q.Sort.Field = f
	}
	if strings.EqualFold(c.Query("order"), "desc") {
		q.Sort.Direction = domain.Desc
	}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			problems = append(problems, "invalid limit: "+v)
		}
		q.Page.Limit = n
	}
	if v := c.Query("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems = append(problems, "invalid skip: "+v)
		}
		q.Page.Skip = n
	}

	if len(problems) > 0 {
		return domain.TaskQuery{}, domain.NewValidationError(problems...)
	}
	return q, nil
}

// parseTime reads RFC 3339 timestamps and plain YYYY-MM-DD dates, the
// latter in the reference timezone.
func (s *Server) parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, s.tasks.Location())
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// parseDue accepts an RFC 3339 timestamp or a chat date expression such as
// "tomorrow 5pm". Empty means the default due date.
func (s *Server) parseDue(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.tasks.ResolveDue(""), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, ok := s.tasks.Resolver().Resolve(v, s.tasks.Now()); ok {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError("invalid dueDate: " + v)
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		badRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Task not found"})
	default:
		observability.LoggerFromContext(c.Request.Context()).Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}
