// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// List is a to-do list. It carries no data of its own beyond its identity;
// everything interesting lives in its items.
type List struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// URL returns the canonical path of the list page.
// Handlers redirect here after every successful POST.
func (l *List) URL() string {
	return "/lists/" + l.ID + "/"
}

// Item is a single to-do entry, unique by Text within its list.
//
// WHY A Seq FIELD?
// Items are displayed in the order they were added. Rather than relying on
// the database's physical insertion order (or on the shape of our IDs), the
// repository stamps every item with a strictly increasing sequence number
// and sorts by it.
type Item struct {
	ID        string    `json:"id"`
	ListID    string    `json:"listId"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}
