// Package models contains the GORM models of the local plot store. They are
// kept apart from the domain types so the domain stays free of ORM tags;
// each model converts to and from its domain value.
package models
