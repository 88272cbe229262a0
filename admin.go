package committee

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wa-psh/committee/content"
	"github.com/wa-psh/committee/markdown"
	"github.com/wa-psh/committee/metastore"
)

// resource serves the admin CRUD routes of one metadata store.
type resource[T any] struct {
	label    string // "Post", "Event", ... used in messages
	store    *metastore.Store[T]
	required []string // JSON fields that must be non-empty strings
	missing  string   // message when a required field is empty
	clean    func(*T)
	check    func(context.Context, T) string // returns a display message on failure
	onChange func()
	onDelete func(context.Context, T)
}

func (r *resource[T]) list(c echo.Context) error {
	return ok(c, http.StatusOK, r.store.All(c.Request().Context()), "")
}

func (r *resource[T]) get(c echo.Context) error {
	v, err := r.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound(r.label)
	}
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, v, "")
}

func (r *resource[T]) create(c echo.Context) error {
	patch, err := readPatch(c)
	if err != nil {
		return err
	}
	if err := r.requireFields(patch, true); err != nil {
		return err
	}
	var zero T
	v, err := metastore.Merge(zero, r.store.Sanitize(patch))
	if err != nil {
		return badRequest("Invalid " + strings.ToLower(r.label) + ": " + err.Error())
	}
	ctx := c.Request().Context()
	if r.clean != nil {
		r.clean(&v)
	}
	if r.check != nil {
		if msg := r.check(ctx, v); msg != "" {
			return badRequest(msg)
		}
	}
	added, durable := r.store.Add(ctx, v)
	r.changed()
	return written(c, http.StatusCreated, added, r.label+" created", durable)
}

func (r *resource[T]) update(c echo.Context) error {
	patch, err := readPatch(c)
	if err != nil {
		return err
	}
	if err := r.requireFields(patch, false); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	patch = r.store.Sanitize(patch)

	// Validate the merged record before anything is persisted.
	current, err := r.store.Get(ctx, id)
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound(r.label)
	}
	if err != nil {
		return err
	}
	merged, err := metastore.Merge(current, patch)
	if err != nil {
		return badRequest("Invalid " + strings.ToLower(r.label) + ": " + err.Error())
	}
	if r.clean != nil {
		r.clean(&merged)
		patch = cleanedPatch(patch, merged)
	}
	if r.check != nil {
		if msg := r.check(ctx, merged); msg != "" {
			return badRequest(msg)
		}
	}

	updated, durable, err := r.store.Update(ctx, id, patch)
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound(r.label)
	}
	if err != nil {
		return err
	}
	r.changed()
	return written(c, http.StatusOK, updated, r.label+" updated", durable)
}

func (r *resource[T]) remove(c echo.Context) error {
	ctx := c.Request().Context()
	removed, durable, err := r.store.Delete(ctx, c.Param("id"))
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound(r.label)
	}
	if err != nil {
		return err
	}
	if r.onDelete != nil {
		r.onDelete(ctx, removed)
	}
	r.changed()
	return written(c, http.StatusOK, removed, r.label+" deleted", durable)
}

func (r *resource[T]) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}

// requireFields checks required string fields. On create every required
// field must be present; on update only the ones being changed are checked.
func (r *resource[T]) requireFields(patch map[string]any, create bool) error {
	for _, f := range r.required {
		v, present := patch[f]
		if !present && !create {
			continue
		}
		s, isString := v.(string)
		if !isString || strings.TrimSpace(s) == "" {
			return badRequest(r.missing)
		}
	}
	return nil
}

// readPatch decodes the request body as a JSON object.
func readPatch(c echo.Context) (map[string]any, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, badRequest("Could not read request body")
	}
	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil || patch == nil {
		return nil, badRequest("Request body must be a JSON object")
	}
	return patch, nil
}

// cleanedPatch copies the normalised values of the patched keys from
// merged back into patch.
func cleanedPatch[T any](patch map[string]any, merged T) map[string]any {
	raw, err := json.Marshal(merged)
	if err != nil {
		return patch
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return patch
	}
	out := make(map[string]any, len(patch))
	for k, v := range patch {
		if cleaned, ok := fields[k]; ok {
			out[k] = cleaned
		} else {
			out[k] = v
		}
	}
	return out
}

func (a *App) postResource() *resource[content.BlogPost] {
	return &resource[content.BlogPost]{
		label:    "Post",
		store:    a.Blog,
		required: []string{"title", "content"},
		missing:  "Title and content are required",
		clean: func(p *content.BlogPost) {
			p.Title = strings.TrimSpace(p.Title)
			p.Tags = FilterEmpty(p.Tags)
		},
		check: func(ctx context.Context, p content.BlogPost) string {
			// New posts get a unique slug when added.
			if p.ID == "" || p.Slug == "" {
				return ""
			}
			if content.Slugify(p.Slug) != p.Slug {
				return "Slug may only contain lowercase letters, digits and hyphens"
			}
			_, err := a.Blog.Find(ctx, func(o content.BlogPost) bool {
				return o.Slug == p.Slug && o.ID != p.ID
			})
			if err == nil {
				return "Slug is already used by another post"
			}
			return ""
		},
		onChange: a.postCache.Invalidate,
	}
}

func (a *App) eventResource() *resource[content.Event] {
	return &resource[content.Event]{
		label:    "Event",
		store:    a.Events,
		required: []string{"title", "date", "time", "location"},
		missing:  "Title, date, time, and location are required",
		clean: func(e *content.Event) {
			e.Title = strings.TrimSpace(e.Title)
			e.Date = strings.TrimSpace(e.Date)
		},
		check: func(_ context.Context, e content.Event) string {
			if _, ok := eventDay(e.Date); !ok {
				return "Date must be in YYYY-MM-DD format"
			}
			return ""
		},
		onChange: a.eventCache.Invalidate,
	}
}

func (a *App) documentResource() *resource[content.Document] {
	return &resource[content.Document]{
		label:    "Document",
		store:    a.Documents,
		required: []string{"title", "filename"},
		missing:  "Title and filename are required",
		clean: func(d *content.Document) {
			d.Title = strings.TrimSpace(d.Title)
			d.Category = strings.TrimSpace(d.Category)
		},
		onChange: a.documentCache.Invalidate,
		onDelete: a.deleteDocumentFile,
	}
}

func (a *App) submissionResource() *resource[content.Submission] {
	return &resource[content.Submission]{
		label: "Submission",
		store: a.Submissions,
		check: func(_ context.Context, s content.Submission) string {
			switch s.Status {
			case "", content.StatusNew, content.StatusRead, content.StatusArchived:
				return ""
			}
			return "Status must be one of new, read, archived"
		},
	}
}

func (a *App) handlePostPreview(c echo.Context) error {
	post, err := a.Blog.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound("Post")
	}
	if err != nil {
		return err
	}
	return renderPreview(c, markdown.Preview(post.Title, post.Content))
}

// handleSubmissionGet returns a submission and marks it read.
func (a *App) handleSubmissionGet(c echo.Context) error {
	ctx := c.Request().Context()
	sub, err := a.Submissions.Get(ctx, c.Param("id"))
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound("Submission")
	}
	if err != nil {
		return err
	}
	if !sub.Read {
		patch := map[string]any{"read": true}
		if sub.Status == content.StatusNew {
			patch["status"] = content.StatusRead
		}
		if updated, _, err := a.Submissions.Update(ctx, string(sub.ID), patch); err == nil {
			sub = updated
		}
	}
	return ok(c, http.StatusOK, sub, "")
}

type submissionAction struct {
	Action string `json:"action"`
}

// handleSubmissionAction applies {"action":"toggleRead"} to a submission.
func (a *App) handleSubmissionAction(c echo.Context) error {
	var req submissionAction
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if req.Action != "toggleRead" {
		return badRequest("Invalid action")
	}
	ctx := c.Request().Context()
	sub, err := a.Submissions.Get(ctx, c.Param("id"))
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound("Submission")
	}
	if err != nil {
		return err
	}
	read := !sub.Read
	patch := map[string]any{"read": read}
	switch {
	case read && sub.Status == content.StatusNew:
		patch["status"] = content.StatusRead
	case !read && sub.Status == content.StatusRead:
		patch["status"] = content.StatusNew
	}
	updated, durable, err := a.Submissions.Update(ctx, string(sub.ID), patch)
	if err != nil {
		return err
	}
	return written(c, http.StatusOK, updated, "", durable)
}

type storeStats struct {
	State string          `json:"state"`
	Stats metastore.Stats `json:"stats"`
}

// handleStoreStats reports each store's backing state and degradation counters.
func (a *App) handleStoreStats(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]storeStats{
		content.BlogCollection:        {a.Blog.State().String(), a.Blog.Stats()},
		content.EventsCollection:      {a.Events.State().String(), a.Events.Stats()},
		content.DocumentsCollection:   {a.Documents.State().String(), a.Documents.Stats()},
		content.SubmissionsCollection: {a.Submissions.State().String(), a.Submissions.Stats()},
	}, "")
}
