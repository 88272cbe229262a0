// Package content defines the committee site's entity types and the
// metastore kinds that persist them.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is the canonical record identifier. Persisted documents written by
// older versions of the site carry numeric ids; they are normalised to
// their decimal string form on decode.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("content: id must be a string or number: %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// BlogPost is a news article on the committee site. Content is markdown.
type BlogPost struct {
	ID          ID       `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     string   `json:"excerpt"`
	Content     string   `json:"content"`
	Author      string   `json:"author"`
	Date        string   `json:"date"`
	PublishedAt string   `json:"publishedAt"`
	Tags        []string `json:"tags"`
	IsDraft     bool     `json:"isDraft"`
}

// Event is a scheduled committee meeting or public session. Date is
// YYYY-MM-DD; Time is free text ("10:00 AM - 12:00 PM").
type Event struct {
	ID               ID     `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Location         string `json:"location"`
	Address          string `json:"address"`
	RegistrationLink string `json:"registrationLink"`
	CreatedAt        string `json:"createdAt"`
}

// Document is a downloadable committee resource. BlobURL is set when the
// file itself was uploaded to the object store.
type Document struct {
	ID            ID     `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Filename      string `json:"filename"`
	FileSize      string `json:"fileSize"`
	UploadedAt    string `json:"uploadedAt"`
	DownloadCount int    `json:"downloadCount"`
	BlobURL       string `json:"blobUrl,omitempty"`
}

// Submission is a message received through the contact form.
type Submission struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	Interest     string `json:"interest"`
	Message      string `json:"message"`
	IP           string `json:"ip,omitempty"`
	SubmittedAt  string `json:"submittedAt"`
	Status       string `json:"status"`
	Read         bool   `json:"read"`
}

// Submission statuses.
const (
	StatusNew      = "new"
	StatusRead     = "read"
	StatusArchived = "archived"
)
