package model

// Document is implemented by every entity a repository collection can hold.
// The collection assigns the ID on Create (and on Save when it is empty).
type Document interface {
	GetID() string
	SetID(id string)
}
