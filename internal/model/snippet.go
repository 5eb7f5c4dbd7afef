// Package model defines the data structures used throughout the application.
package model

import "time"

// Snippet is a single stored record of a registered snippet type.
//
// The set of fields is defined by the content type (see package registry),
// so values are kept by field name rather than as struct members. An Advert,
// for example, carries Fields["text"] and Fields["url"].
type Snippet struct {
	ID          int64             `json:"id"`
	ContentType string            `json:"contentType"` // "app_label.model_name", e.g. "tests.advert"
	Fields      map[string]string `json:"fields"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Get returns the value of the named field, or "" when it is unset.
func (s *Snippet) Get(name string) string {
	if s == nil || s.Fields == nil {
		return ""
	}
	return s.Fields[name]
}

// Clone returns a deep copy so callers can't mutate shared state.
func (s *Snippet) Clone() *Snippet {
	if s == nil {
		return nil
	}
	c := *s
	c.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		c.Fields[k] = v
	}
	return &c
}
