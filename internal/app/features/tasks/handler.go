// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/query"
	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/shared/params"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	taskstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/tasks"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authz"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/htmlsanitize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/normalize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 10000
)

var (
	errHidden     = apperr.Forbidden("you do not have access to this task")
	errNotCreator = apperr.Forbidden("only the task's creator or an admin can change it")
	errAssignees  = apperr.Validation("assigned_to contains an unknown user or one you cannot assign")
)

type Handler struct {
	Tasks    *taskstore.Store
	Users    *userstore.Store
	Resolver *location.Resolver
	Namer    *location.Namer
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, resolver *location.Resolver, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Tasks:    taskstore.New(db),
		Users:    userstore.New(db),
		Resolver: resolver,
		Namer:    location.NewNamer(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

// input is the create/update body. A missing priority means medium.
type input struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    *int     `json:"priority"`
	DueDate     string   `json:"due_date"`
	AssignedTo  []string `json:"assigned_to"`
	Country     string   `json:"country"`
	State       string   `json:"state"`
	City        string   `json:"city"`
	ZipCode     string   `json:"zip_code"`
}

// parsed is input after validation.
type parsed struct {
	title       string
	description string
	priority    int
	due         *time.Time
	assignees   []primitive.ObjectID
	addr        location.Address
}

func (in input) parse() (parsed, error) {
	var p parsed
	p.title = canon.Display(in.Title)
	switch {
	case p.title == "":
		return p, apperr.Validation("title is required")
	case utf8.RuneCountInString(p.title) > MaxTitleLength:
		return p, apperr.Validation("title is too long")
	case utf8.RuneCountInString(in.Description) > MaxDescriptionLength:
		return p, apperr.Validation("description is too long")
	}
	p.description = htmlsanitize.Sanitize(in.Description)

	p.priority = models.PriorityMedium
	if in.Priority != nil {
		if !models.ValidPriority(*in.Priority) {
			return p, apperr.Validation("priority must be 0 (low), 1 (medium) or 2 (high)")
		}
		p.priority = *in.Priority
	}

	due, err := params.ParseTime(in.DueDate, "due_date")
	if err != nil {
		return p, err
	}
	p.due = due

	if p.assignees, err = params.ParseIDs(in.AssignedTo, "assigned_to"); err != nil {
		return p, err
	}

	p.addr = location.Address{Country: in.Country, State: in.State, City: in.City}
	if z := canon.Display(in.ZipCode); z != "" {
		p.addr.ZipCodes = []string{z}
	}
	return p, nil
}

// view is a task with the display names of its location.
type view struct {
	models.Task
	Location location.AddressNames `json:"location"`
}

func (h *Handler) views(ctx context.Context, tasks ...models.Task) ([]view, error) {
	refs := make([]models.LocationRef, 0, len(tasks))
	for _, t := range tasks {
		refs = append(refs, t.LocationRef)
	}
	names, err := h.Namer.Names(ctx, refs...)
	if err != nil {
		return nil, err
	}
	out := make([]view, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, view{Task: t, Location: names.Of(t.LocationRef)})
	}
	return out, nil
}

func (h *Handler) writeOne(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, t models.Task, op string) {
	out, err := h.views(ctx, t)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal(op, err))
		return
	}
	jsonio.Write(w, status, out[0])
}

// added returns the ids in next that are not in prev.
func added(prev, next []primitive.ObjectID) []primitive.ObjectID {
	have := make(map[primitive.ObjectID]struct{}, len(prev))
	for _, id := range prev {
		have[id] = struct{}{}
	}
	var out []primitive.ObjectID
	for _, id := range next {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// checkAssignees confirms every id is a live user the actor may assign.
func (h *Handler) checkAssignees(ctx context.Context, actor authz.Principal, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := h.Users.CountLiveIn(ctx, actor.UserScope(), ids)
	if err != nil {
		return apperr.Internal("tasks.checkAssignees", err)
	}
	if n != int64(len(ids)) {
		return errAssignees
	}
	return nil
}

// load fetches a task the actor may see. Hidden tasks are Forbidden.
func (h *Handler) load(ctx context.Context, r *http.Request, actor authz.Principal) (models.Task, error) {
	id, err := params.PathID(r)
	if err != nil {
		return models.Task{}, err
	}
	t, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, taskstore.ErrNotFound) {
			err = apperr.Internal("tasks.load", err)
		}
		return models.Task{}, err
	}
	if !actor.CanSeeTask(t) {
		return models.Task{}, errHidden
	}
	return t, nil
}

func listFilter(r *http.Request) (taskstore.Filter, error) {
	var f taskstore.Filter
	f.Status = normalize.Keyword(query.Get(r, "status"))
	if !taskstore.ValidStatus(f.Status) {
		return f, apperr.Validation("status must be all, completed, pending or overdue")
	}
	if s := query.Get(r, "priority"); s != "" {
		var p int
		switch s {
		case "0":
			p = models.PriorityLow
		case "1":
			p = models.PriorityMedium
		case "2":
			p = models.PriorityHigh
		default:
			return f, apperr.Validation("priority must be 0, 1 or 2")
		}
		f.Priority = &p
	}
	var err error
	if f.AssignedTo, err = params.QueryID(r, "assigned_to"); err != nil {
		return f, err
	}
	if f.CreatedBy, err = params.QueryID(r, "created_by"); err != nil {
		return f, err
	}
	if f.DueFrom, err = params.QueryTime(r, "due_from"); err != nil {
		return f, err
	}
	if f.DueTo, err = params.QueryTime(r, "due_to"); err != nil {
		return f, err
	}
	f.Q = query.Get(r, "q")
	return f, nil
}

// GetList handles GET /.
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	f, err := listFilter(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p, err := paging.Parse(r, taskstore.Sorts, "-created_at")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, total, err := h.Tasks.List(ctx, actor.TaskScope(), f, p)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("tasks.GetList", err))
		return
	}
	out, err := h.views(ctx, items...)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("tasks.GetList", err))
		return
	}
	jsonio.Write(w, http.StatusOK, paging.NewPage(out, total, p))
}

// GetAssignedUsersLookup handles GET /assigned-users-lookup: the users the
// actor may assign tasks to.
func (h *Handler) GetAssignedUsersLookup(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Users.Lookup(ctx, actor.UserScope())
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("tasks.GetAssignedUsersLookup", err))
		return
	}
	jsonio.Write(w, http.StatusOK, items)
}

// GetModel handles GET /{id}.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.load(ctx, r, actor)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.writeOne(ctx, w, r, http.StatusOK, t, "tasks.GetModel")
}

// Insert handles POST /.
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in input
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	pin, err := in.parse()
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.checkAssignees(ctx, actor, pin.assignees); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	loc, err := h.Resolver.Resolve(ctx, &actor.ID, pin.addr)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	t, err := h.Tasks.Create(ctx, models.Task{
		Title:       pin.title,
		Description: pin.description,
		Priority:    pin.priority,
		DueDate:     pin.due,
		AssignedTo:  pin.assignees,
		LocationRef: loc.Ref(),
	}, actor.ID)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindValidation {
			err = apperr.Internal("tasks.Insert", err)
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("task created", zap.String("id", t.ID.Hex()), zap.String("by", actor.ID.Hex()))
	h.writeOne(ctx, w, r, http.StatusCreated, t, "tasks.Insert")
}

// Update handles PUT /{id}. Only the creator or an admin may edit.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in input
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	pin, err := in.parse()
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	existing, err := h.load(ctx, r, actor)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if !actor.CanEditTask(existing) {
		h.ErrLog.Write(w, r, errNotCreator)
		return
	}
	// Assignees already on the task stay valid even if the editor could not
	// have picked them.
	if err := h.checkAssignees(ctx, actor, added(existing.AssignedTo, pin.assignees)); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	loc, err := h.Resolver.Resolve(ctx, &actor.ID, pin.addr)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	t, err := h.Tasks.Update(ctx, existing.ID, taskstore.Update{
		Title:       pin.title,
		Description: pin.description,
		Priority:    pin.priority,
		DueDate:     pin.due,
		AssignedTo:  pin.assignees,
		Location:    loc.Ref(),
	}, actor.ID)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindValidation, apperr.KindNotFound:
		default:
			err = apperr.Internal("tasks.Update", err)
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	h.writeOne(ctx, w, r, http.StatusOK, t, "tasks.Update")
}

// MarkComplete handles PATCH /{id}/complete. The body {"completed": false}
// reopens the task; an empty body completes it. Assignees may do this too.
func (h *Handler) MarkComplete(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	body := struct {
		Completed *bool `json:"completed"`
	}{}
	if r.ContentLength != 0 {
		if err := jsonio.Decode(w, r, &body); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
	}
	completed := body.Completed == nil || *body.Completed

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	existing, err := h.load(ctx, r, actor)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	t, err := h.Tasks.SetCompleted(ctx, existing.ID, completed, actor.ID)
	if err != nil {
		if !errors.Is(err, taskstore.ErrNotFound) {
			err = apperr.Internal("tasks.MarkComplete", err)
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	h.writeOne(ctx, w, r, http.StatusOK, t, "tasks.MarkComplete")
}

// Delete handles DELETE /{id}. Tasks are soft-deleted.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.load(ctx, r, actor)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if !actor.CanEditTask(t) {
		h.ErrLog.Write(w, r, errNotCreator)
		return
	}
	if err := h.Tasks.SoftDelete(ctx, t.ID, actor.ID); err != nil {
		if !errors.Is(err, taskstore.ErrNotFound) {
			err = apperr.Internal("tasks.Delete", err)
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("task deleted", zap.String("id", t.ID.Hex()), zap.String("by", actor.ID.Hex()))
	w.WriteHeader(http.StatusNoContent)
}
