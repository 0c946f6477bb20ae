package mongo

import (
	"fmt"
	"strings"
)

// Document paths use alternating collection/document segments, mirroring the
// hosted store layout ("classrooms/c1/attendees/u1"). In MongoDB each nested
// collection flattens to one collection named by the collection segments
// ("classrooms.attendees"); the full path is the _id and the enclosing
// document path is kept in a _parent field so bounded queries can scope to
// one classroom.
const parentField = "_parent"

type docRef struct {
	Collection string
	Parent     string
	ID         string
	Path       string
}

func parseDocPath(path string) (docRef, error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return docRef{}, fmt.Errorf("invalid document path %q", path)
	}
	if err := checkSegments(path, segments); err != nil {
		return docRef{}, err
	}

	return docRef{
		Collection: collectionName(segments[:len(segments)-1]),
		Parent:     strings.Join(segments[:len(segments)-2], "/"),
		ID:         segments[len(segments)-1],
		Path:       path,
	}, nil
}

type collectionRef struct {
	Collection string
	Parent     string
	Path       string
}

func parseCollectionPath(path string) (collectionRef, error) {
	segments := strings.Split(path, "/")
	if len(segments)%2 != 1 {
		return collectionRef{}, fmt.Errorf("invalid collection path %q", path)
	}
	if err := checkSegments(path, segments); err != nil {
		return collectionRef{}, err
	}

	return collectionRef{
		Collection: collectionName(segments),
		Parent:     strings.Join(segments[:len(segments)-1], "/"),
		Path:       path,
	}, nil
}

// collectionName joins the collection segments (even indexes) with dots.
func collectionName(segments []string) string {
	names := make([]string, 0, (len(segments)+1)/2)
	for i := 0; i < len(segments); i += 2 {
		names = append(names, segments[i])
	}
	return strings.Join(names, ".")
}

func checkSegments(path string, segments []string) error {
	for _, segment := range segments {
		if segment == "" || strings.Contains(segment, ".") {
			return fmt.Errorf("invalid path segment in %q", path)
		}
	}
	return nil
}
