package core

import (
	"errors"
	"fmt"
)

// ClassificationError means the resource could not be reached at all
// while deciding what it is.
type ClassificationError struct {
	URL string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classifying %s: %v", e.URL, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// NavigationError covers invalid URLs, DNS and TLS failures, and a final
// HTTP status outside 2xx/3xx.
type NavigationError struct {
	URL    string
	Status int
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("navigating to %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("navigating to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// CorruptDocumentError means the bytes claim to be a PDF but cannot be
// parsed or are encrypted.
type CorruptDocumentError struct {
	URL string
	Err error
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("corrupt document %s: %v", e.URL, e.Err)
}

func (e *CorruptDocumentError) Unwrap() error { return e.Err }

// ExtractionFailure is soft: content was acquired but no confident main
// region was found. It is returned next to a usable document.
type ExtractionFailure struct {
	URL    string
	Reason string
}

func (e *ExtractionFailure) Error() string {
	if e.URL == "" {
		return "extraction failed: " + e.Reason
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.URL, e.Reason)
}

// IsSoft reports whether err only signals a degraded result.
func IsSoft(err error) bool {
	var ef *ExtractionFailure
	return errors.As(err, &ef)
}

// WithURL fills in the URL of a taxonomy error that does not carry one yet.
func WithURL(err error, url string) error {
	var (
		ce *ClassificationError
		ne *NavigationError
		cd *CorruptDocumentError
		ef *ExtractionFailure
	)
	switch {
	case errors.As(err, &ce):
		if ce.URL == "" {
			ce.URL = url
		}
	case errors.As(err, &ne):
		if ne.URL == "" {
			ne.URL = url
		}
	case errors.As(err, &cd):
		if cd.URL == "" {
			cd.URL = url
		}
	case errors.As(err, &ef):
		if ef.URL == "" {
			ef.URL = url
		}
	}
	return err
}
