// Package notes holds the append-only note value shared by leads, orders,
// replacements and litigations. Notes are embedded in their owner's row as
// a JSON array and copied by value whenever the owner is cloned.
package notes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Note is a single timestamped remark.
type Note struct {
	Text       string     `json:"text"`
	AuthorID   *uuid.UUID `json:"authorId,omitempty"`
	AuthorName string     `json:"author"`
	System     bool       `json:"system"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// New builds a note written by an agent.
func New(text string, authorID uuid.UUID, authorName string, at time.Time) Note {
	id := authorID
	return Note{Text: text, AuthorID: &id, AuthorName: authorName, CreatedAt: at.UTC()}
}

// NewSystem builds a note written by the engine itself.
func NewSystem(text string, at time.Time) Note {
	return Note{Text: text, AuthorName: "system", System: true, CreatedAt: at.UTC()}
}

// Clone deep-copies a note list. The result never shares memory with in.
func Clone(in []Note) []Note {
	if in == nil {
		return nil
	}
	out := make([]Note, len(in))
	for i, n := range in {
		out[i] = n
		if n.AuthorID != nil {
			id := *n.AuthorID
			out[i].AuthorID = &id
		}
	}
	return out
}

// Decode parses a JSONB column. NULL and empty input yield an empty list.
func Decode(raw []byte) ([]Note, error) {
	items := make([]Note, 0)
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// EncodeOne renders n as a one-element JSON array for `col || $x::jsonb` appends.
func EncodeOne(n Note) ([]byte, error) {
	return json.Marshal([]Note{n})
}
