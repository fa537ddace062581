package tideline

import (
	"fmt"
	"net/http"
)

// ValidationError is returned for malformed page requests. It is never retried.
type ValidationError struct {
	Message string
}

func (err ValidationError) Error() string {
	if err.Message != "" {
		return "tideline: " + err.Message
	}
	return "tideline: invalid page request"
}

func (err ValidationError) Status() int {
	return http.StatusBadRequest
}

// DataSourceError wraps a failure reported by a row source.
type DataSourceError struct {
	Err error
}

func (err DataSourceError) Error() string {
	if err.Err != nil {
		return "tideline: row source failed: " + err.Err.Error()
	}
	return "tideline: row source failed"
}

func (err DataSourceError) Status() int {
	return http.StatusBadGateway
}

func (err DataSourceError) Unwrap() error {
	return err.Err
}

// DataError identifies a retrieved row that cannot serve as an anchor.
type DataError struct {
	Column  string
	Message string
}

func (err DataError) Error() string {
	if err.Message != "" {
		return fmt.Sprintf("tideline: column '%s': %s", err.Column, err.Message)
	}
	return fmt.Sprintf("tideline: unable to find a value for column '%s'", err.Column)
}

func (err DataError) Status() int {
	return http.StatusInternalServerError
}

type ErrorWithStatus interface {
	error
	Status() int
}
