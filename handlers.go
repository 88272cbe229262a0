package committee

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wa-psh/committee/blob"
	"github.com/wa-psh/committee/content"
	"github.com/wa-psh/committee/markdown"
	"github.com/wa-psh/committee/metastore"
)

const dayLayout = "2006-01-02"

// postDetail is a single published post with related posts and its
// structured data for the page head.
type postDetail struct {
	content.BlogPost
	HTML    string             `json:"html"`
	Related []content.BlogPost `json:"related"`
	JSONLD  string             `json:"jsonLd"`
}

// handleBlog lists published posts, newest first, or returns one post when
// ?slug is given. Supports ?tag and ?limit.
func (a *App) handleBlog(c echo.Context) error {
	posts := a.postCache.Get(c.Request().Context())

	if slug := strings.TrimSpace(c.QueryParam("slug")); slug != "" {
		for _, p := range posts {
			if p.Slug == slug && !p.IsDraft {
				related := FilterRelatedPosts(p, posts)
				if related == nil {
					related = []content.BlogPost{}
				}
				body, err := markdown.Render(p.Content)
				if err != nil {
					return fmt.Errorf("render post %s: %w", p.ID, err)
				}
				return ok(c, http.StatusOK, postDetail{
					BlogPost: p,
					HTML:     body,
					Related:  applyLimit(related, 3),
					JSONLD:   BlogPostingJsonLD(p, a.Config),
				}, "")
			}
		}
		return notFound("Post")
	}

	return ok(c, http.StatusOK, publishedPosts(posts, c.QueryParam("tag"), parseLimit(c.QueryParam("limit"))), "")
}

// publishedPosts filters out drafts, optionally keeps only posts tagged tag,
// and sorts newest first.
func publishedPosts(posts []content.BlogPost, tag string, limit int) []content.BlogPost {
	tag = normalizeTag(tag)
	out := make([]content.BlogPost, 0, len(posts))
	for _, p := range posts {
		if p.IsDraft {
			continue
		}
		if tag != "" && !slices.ContainsFunc(p.Tags, func(t string) bool { return normalizeTag(t) == tag }) {
			continue
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(x, y content.BlogPost) int {
		if c := strings.Compare(postDay(y), postDay(x)); c != 0 {
			return c
		}
		return strings.Compare(y.Date, x.Date)
	})
	return applyLimit(out, limit)
}

// postDay is the publication day of p as YYYY-MM-DD.
func postDay(p content.BlogPost) string {
	if p.PublishedAt != "" {
		return p.PublishedAt
	}
	if len(p.Date) >= len(dayLayout) {
		return p.Date[:len(dayLayout)]
	}
	return p.Date
}

// handleEvents lists upcoming events, soonest first. ?includePast adds
// past events; ?limit caps the result.
func (a *App) handleEvents(c echo.Context) error {
	events := a.eventCache.Get(c.Request().Context())
	return ok(c, http.StatusOK, upcomingEvents(events, a.now(), truthy(c.QueryParam("includePast")), parseLimit(c.QueryParam("limit"))), "")
}

func upcomingEvents(events []content.Event, now time.Time, includePast bool, limit int) []content.Event {
	today := now.UTC().Format(dayLayout)
	out := make([]content.Event, 0, len(events))
	for _, e := range events {
		day, valid := eventDay(e.Date)
		if !includePast && (!valid || day < today) {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(x, y content.Event) int {
		dx, _ := eventDay(x.Date)
		dy, _ := eventDay(y.Date)
		return strings.Compare(dx, dy)
	})
	return applyLimit(out, limit)
}

// eventDay normalises an event date (YYYY-MM-DD or RFC 3339) to YYYY-MM-DD.
func eventDay(date string) (string, bool) {
	if t, err := time.Parse(dayLayout, date); err == nil {
		return t.Format(dayLayout), true
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.UTC().Format(dayLayout), true
	}
	return "", false
}

// publicDocument is the public view of a document.
type publicDocument struct {
	ID          content.ID `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Filename    string     `json:"filename"`
	FileSize    string     `json:"fileSize"`
	UploadedAt  string     `json:"uploadedAt"`
	DownloadURL string     `json:"downloadUrl"`
}

func (a *App) handleDocuments(c echo.Context) error {
	docs := a.documentCache.Get(c.Request().Context())
	category := strings.TrimSpace(c.QueryParam("category"))
	out := make([]publicDocument, 0, len(docs))
	for _, d := range docs {
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		out = append(out, publicDocument{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Category:    d.Category,
			Filename:    d.Filename,
			FileSize:    d.FileSize,
			UploadedAt:  d.UploadedAt,
			DownloadURL: "/api/documents/" + url.PathEscape(string(d.ID)) + "/download",
		})
	}
	return ok(c, http.StatusOK, out, "")
}

// handleDocumentDownload counts the download and sends the file: a redirect
// to its public URL, the bytes from the object store, or the static copy.
func (a *App) handleDocumentDownload(c echo.Context) error {
	ctx := c.Request().Context()
	doc, err := a.Documents.Get(ctx, c.Param("id"))
	if errors.Is(err, metastore.ErrNotFound) {
		return notFound("Document")
	}
	if err != nil {
		return err
	}
	if _, _, err := a.Documents.Modify(ctx, string(doc.ID), func(d *content.Document) error {
		d.DownloadCount++
		return nil
	}); err != nil {
		c.Logger().Warnf("document %s: count download: %v", doc.ID, err)
	}

	if isHTTPURL(doc.BlobURL) {
		return c.Redirect(http.StatusFound, doc.BlobURL)
	}
	if key := documentBlobKey(doc); key != "" && a.Objects != nil {
		data, err := a.Objects.Get(ctx, key)
		if errors.Is(err, blob.ErrNotFound) {
			return notFound("File")
		}
		if err != nil {
			return err
		}
		ctype := mime.TypeByExtension(path.Ext(key))
		if ctype == "" {
			ctype = echo.MIMEOctetStream
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
		return c.Blob(http.StatusOK, ctype, data)
	}
	return c.Redirect(http.StatusFound, "/documents/"+url.PathEscape(doc.Filename))
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

type statusReport struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Timestamp   string            `json:"timestamp"`
	Environment statusEnvironment `json:"environment"`
	Stores      map[string]string `json:"stores"`
	Endpoints   map[string]any    `json:"endpoints"`
}

type statusEnvironment struct {
	DevMode          bool   `json:"devMode"`
	HasJWTSecret     bool   `json:"hasJwtSecret"`
	HasAdminPassword bool   `json:"hasAdminPassword"`
	ObjectStore      string `json:"objectStore"`
}

// handleStatus reports configuration presence and store states. It never
// reveals secret values.
func (a *App) handleStatus(c echo.Context) error {
	objectStore := "none"
	if a.Objects != nil {
		objectStore = a.Config.BlobBackend
	}
	return ok(c, http.StatusOK, statusReport{
		Service:   a.Config.Name + " API",
		Version:   Version,
		Timestamp: a.now().UTC().Format(time.RFC3339),
		Environment: statusEnvironment{
			DevMode:          a.Config.DevMode,
			HasJWTSecret:     a.Config.JWTSecret != "",
			HasAdminPassword: a.Config.AdminPasswordHash != "",
			ObjectStore:      objectStore,
		},
		Stores: map[string]string{
			content.BlogCollection:        a.Blog.State().String(),
			content.EventsCollection:      a.Events.State().String(),
			content.DocumentsCollection:   a.Documents.State().String(),
			content.SubmissionsCollection: a.Submissions.State().String(),
		},
		Endpoints: map[string]any{
			"auth":   map[string]string{"login": "/api/auth/login", "verify": "/api/auth/verify"},
			"public": map[string]string{"blog": "/api/blog", "events": "/api/events", "documents": "/api/documents", "contact": "/api/contact"},
			"admin": map[string]string{
				"blog":        "/api/admin/blog",
				"events":      "/api/admin/events",
				"documents":   "/api/admin/documents",
				"submissions": "/api/admin/submissions",
			},
		},
	}, "PSH Committee API is running")
}

func (a *App) handleSitemap(c echo.Context) error {
	posts := publishedPosts(a.postCache.Get(c.Request().Context()), "", 0)
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts := publishedPosts(a.postCache.Get(c.Request().Context()), "", 0)
	return a.renderRSS(c, posts)
}
