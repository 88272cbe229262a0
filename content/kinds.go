package content

import (
	"time"

	"github.com/wa-psh/committee/metastore"
)

// Collection names, which double as object-store key prefixes.
const (
	BlogCollection        = "blog"
	EventsCollection      = "events"
	DocumentsCollection   = "documents"
	SubmissionsCollection = "submissions"
)

// DefaultAuthor is used for posts created without an author.
const DefaultAuthor = "admin"

const dateLayout = "2006-01-02"

// BlogKind persists posts as {"posts": [...]} under blog/metadata.json.
func BlogKind() metastore.Kind[BlogPost] {
	return metastore.Kind[BlogPost]{
		Name:      BlogCollection,
		Envelope:  "posts",
		Defaults:  DefaultBlogPosts,
		IDOf:      func(p BlogPost) string { return string(p.ID) },
		Prepare:   prepareBlogPost,
		Immutable: []string{"id", "date"},
		Preserve: func(updated *BlogPost, original BlogPost) {
			updated.ID = original.ID
			updated.Date = original.Date
			if updated.Tags == nil {
				updated.Tags = []string{}
			}
		},
	}
}

func prepareBlogPost(p *BlogPost, id string, now time.Time, existing []BlogPost) {
	p.ID = ID(id)
	base := p.Slug
	if base == "" {
		base = Slugify(p.Title)
	} else {
		base = Slugify(base)
	}
	p.Slug = UniqueSlug(base, func(s string) bool {
		for _, e := range existing {
			if e.Slug == s {
				return true
			}
		}
		return false
	})
	if p.Excerpt == "" {
		p.Excerpt = Excerpt(p.Content)
	}
	if p.Author == "" {
		p.Author = DefaultAuthor
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Date = now.Format(time.RFC3339)
	p.PublishedAt = now.Format(dateLayout)
}

// EventKind persists events as {"events": [...]} under events/metadata.json.
func EventKind() metastore.Kind[Event] {
	return metastore.Kind[Event]{
		Name:     EventsCollection,
		Envelope: "events",
		Defaults: DefaultEvents,
		IDOf:     func(e Event) string { return string(e.ID) },
		Prepare: func(e *Event, id string, now time.Time, _ []Event) {
			e.ID = ID(id)
			e.CreatedAt = now.Format(time.RFC3339)
		},
		Immutable: []string{"id", "createdAt"},
		Preserve: func(updated *Event, original Event) {
			updated.ID = original.ID
			updated.CreatedAt = original.CreatedAt
		},
	}
}

// DocumentKind persists documents as a bare array under
// documents/metadata.json.
func DocumentKind() metastore.Kind[Document] {
	return metastore.Kind[Document]{
		Name:     DocumentsCollection,
		Defaults: DefaultDocuments,
		IDOf:     func(d Document) string { return string(d.ID) },
		Prepare: func(d *Document, id string, now time.Time, _ []Document) {
			d.ID = ID(id)
			d.UploadedAt = now.Format(time.RFC3339)
			d.DownloadCount = 0
		},
		Immutable: []string{"id", "uploadedAt"},
		Preserve: func(updated *Document, original Document) {
			updated.ID = original.ID
			updated.UploadedAt = original.UploadedAt
		},
	}
}

// SubmissionKind persists submissions as {"submissions": [...]} under
// submissions/metadata.json.
func SubmissionKind() metastore.Kind[Submission] {
	return metastore.Kind[Submission]{
		Name:     SubmissionsCollection,
		Envelope: "submissions",
		Defaults: DefaultSubmissions,
		IDOf:     func(s Submission) string { return string(s.ID) },
		Prepare: func(s *Submission, id string, now time.Time, _ []Submission) {
			s.ID = ID(id)
			s.SubmittedAt = now.Format(time.RFC3339)
			s.Status = StatusNew
			s.Read = false
		},
		Immutable: []string{"id", "submittedAt", "ip"},
		Preserve: func(updated *Submission, original Submission) {
			updated.ID = original.ID
			updated.SubmittedAt = original.SubmittedAt
			updated.IP = original.IP
		},
	}
}
