package firestore

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"firestore-copier/internal/shared/errors"
)

const maxIDBytes = 1500

// Reserved IDs of the form __.*__
var reservedIDPattern = regexp.MustCompile(`^__.*__$`)

// ParsePath splits a slash-separated path into its non-empty segments.
func ParsePath(path string) []string {
	if path == "" {
		return []string{}
	}

	segments := strings.Split(path, "/")
	result := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment != "" {
			result = append(result, segment)
		}
	}

	return result
}

// IsValidID reports whether id is usable as a collection or document ID.
func IsValidID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	if len(id) > maxIDBytes || !utf8.ValidString(id) {
		return false
	}
	if strings.Contains(id, "/") {
		return false
	}
	return !reservedIDPattern.MatchString(id)
}

// IsCollectionPath checks if a path represents a collection
func IsCollectionPath(path string) bool {
	segments := ParsePath(path)
	return len(segments) > 0 && len(segments)%2 == 1
}

// ValidateCollectionPath checks a collection path such as "operations" or
// "users/u1/orders" and returns it without leading or trailing slashes.
func ValidateCollectionPath(path string) (string, error) {
	trimmed := strings.Trim(path, "/")
	if strings.TrimSpace(trimmed) == "" {
		return "", errors.NewValidationError("collection path cannot be empty").
			WithCause(errors.ErrInvalidCollectionPath)
	}
	if strings.Contains(trimmed, "//") {
		return "", errors.NewValidationError("collection path contains an empty segment").
			WithCause(errors.ErrInvalidCollectionPath).
			WithDetail("path", path)
	}

	segments := ParsePath(trimmed)
	for i, segment := range segments {
		if !IsValidID(segment) {
			return "", errors.NewValidationError("invalid path segment").
				WithCause(errors.ErrInvalidCollectionPath).
				WithDetail("path", path).
				WithDetail("segment", segment).
				WithDetail("position", i)
		}
	}

	if !IsCollectionPath(trimmed) {
		return "", errors.NewValidationError("path refers to a document, not a collection").
			WithCause(errors.ErrInvalidCollectionPath).
			WithDetail("path", path)
	}

	return trimmed, nil
}

