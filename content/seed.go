package content

import (
	"embed"
	"encoding/json"
	"fmt"
)

// Default datasets written to the object store the first time a collection
// is found missing, and used to seed the memory fallback.
//
//go:embed seed/*.json
var seedFS embed.FS

func loadSeed[T any](name string) []T {
	data, err := seedFS.ReadFile("seed/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("content: missing seed %s: %v", name, err))
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		panic(fmt.Sprintf("content: bad seed %s: %v", name, err))
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// DefaultBlogPosts returns a fresh copy of the seed blog posts.
func DefaultBlogPosts() []BlogPost { return loadSeed[BlogPost]("blog") }

// DefaultEvents returns a fresh copy of the seed events.
func DefaultEvents() []Event { return loadSeed[Event]("events") }

// DefaultDocuments returns a fresh copy of the seed documents.
func DefaultDocuments() []Document { return loadSeed[Document]("documents") }

// DefaultSubmissions returns the (empty) seed submissions.
func DefaultSubmissions() []Submission { return loadSeed[Submission]("submissions") }
