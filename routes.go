package committee

import (
	"github.com/wa-psh/committee/auth"
)

func (a *App) setupRoutes() {
	e := a.Echo

	// Seed documents shipped as static files.
	e.Static("/documents", a.Config.DocumentsDir)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	api := e.Group("/api", a.apiRateLimiter())

	// Public API
	api.GET("/status", a.handleStatus)
	api.GET("/blog", a.handleBlog)
	api.GET("/events", a.handleEvents)
	api.GET("/documents", a.handleDocuments)
	api.GET("/documents/:id/download", a.handleDocumentDownload)
	api.POST("/contact", a.handleContact)

	// Auth
	api.POST("/auth/login", a.handleLogin)
	api.GET("/auth/verify", a.handleVerify, auth.Gate(a.Codec))

	// Admin API
	admin := api.Group("/admin", auth.Gate(a.Codec, auth.RoleAdmin))

	posts := a.postResource()
	admin.GET("/blog", posts.list)
	admin.POST("/blog", posts.create)
	admin.GET("/blog/:id", posts.get)
	admin.PUT("/blog/:id", posts.update)
	admin.DELETE("/blog/:id", posts.remove)
	admin.GET("/blog/:id/preview", a.handlePostPreview)

	events := a.eventResource()
	admin.GET("/events", events.list)
	admin.POST("/events", events.create)
	admin.GET("/events/:id", events.get)
	admin.PUT("/events/:id", events.update)
	admin.DELETE("/events/:id", events.remove)

	docs := a.documentResource()
	admin.GET("/documents", docs.list)
	admin.POST("/documents", docs.create)
	admin.POST("/documents/upload", a.handleDocumentUpload)
	admin.GET("/documents/files", a.handleDocumentFiles)
	admin.GET("/documents/:id", docs.get)
	admin.PUT("/documents/:id", docs.update)
	admin.DELETE("/documents/:id", docs.remove)

	subs := a.submissionResource()
	admin.GET("/submissions", subs.list)
	admin.GET("/submissions/:id", a.handleSubmissionGet)
	admin.PUT("/submissions/:id", subs.update)
	admin.PATCH("/submissions/:id", a.handleSubmissionAction)
	admin.DELETE("/submissions/:id", subs.remove)
	admin.GET("/stats", a.handleStoreStats)
}
