// Package models contains the domain entities, the Status outcome value and
// the error taxonomy shared by every layer.
package models

import "net/http"

// Status is the outcome of a domain operation: a numeric code and a
// human-readable message.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StatusSuccess is reported by every operation that completes.
var StatusSuccess = Status{Code: http.StatusOK, Message: "Successfully processed"}

// Result pairs an operation's Status with the entity it produced.
type Result[T any] struct {
	Status Status
	Entity T
}

// Succeeded wraps entity in a successful Result.
func Succeeded[T any](entity T) Result[T] {
	return Result[T]{Status: StatusSuccess, Entity: entity}
}

// Page is one page of a filtered listing together with the total number of
// matching records.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Page   int   `json:"page"`
	Length int   `json:"length"`
}
