package services

import (
	"strings"

	"github.com/spotmirror/spotmirror/internal/shared"
)

// Spotify identifiers are base62 strings of exactly this length.
const idLength = 22

const base62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const uriNamespace = "spotify"

var uriTypes = map[string]bool{
	"album":    true,
	"artist":   true,
	"playlist": true,
	"track":    true,
	"user":     true,
}

// ValidID reports whether id is a well-formed Spotify identifier.
func ValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune(base62, r) {
			return false
		}
	}
	return true
}

// CheckID validates a single identifier, failing with an input error
// before any request is built.
func CheckID(id string) error {
	if !ValidID(id) {
		return &shared.InputError{Field: "id", Value: id, Want: "22-char base62 identifier"}
	}
	return nil
}

// CheckIDs validates a batch of identifiers and names every invalid one.
func CheckIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if !ValidID(id) {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return &shared.InputError{Field: "ids", Value: strings.Join(invalid, ","), Want: "22-char base62 identifiers"}
	}
	return nil
}

// CheckURI validates a spotify:{type}:{id} triple.
func CheckURI(uri string) error {
	parts := strings.Split(uri, ":")
	if len(parts) != 3 || parts[0] != uriNamespace || !uriTypes[parts[1]] || !ValidID(parts[2]) {
		return &shared.InputError{Field: "uri", Value: uri, Want: "spotify:{type}:{id}"}
	}
	return nil
}

// CheckURIs validates a batch of URIs.
func CheckURIs(uris []string) error {
	for _, uri := range uris {
		if err := CheckURI(uri); err != nil {
			return err
		}
	}
	return nil
}

// URIToID extracts the identifier (and type) from a URI.
func URIToID(uri string) (id, uriType string, err error) {
	if err := CheckURI(uri); err != nil {
		return "", "", err
	}
	parts := strings.Split(uri, ":")
	return parts[2], parts[1], nil
}

// IDToURI builds a URI from an entity type and identifier.
func IDToURI(uriType, id string) (string, error) {
	if !uriTypes[uriType] {
		return "", &shared.InputError{Field: "type", Value: uriType, Want: "album|artist|playlist|track|user"}
	}
	if err := CheckID(id); err != nil {
		return "", err
	}
	return uriNamespace + ":" + uriType + ":" + id, nil
}
