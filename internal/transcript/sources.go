package transcript

import (
	"strings"

	"github.com/liliang-cn/askchat/internal/domain"
)

// looksLikeURL classifies a source payload
func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http")
}

// attachURL sets url on the last source, then drops any other entry that
// announced the same name and never got a url
func attachURL(sources []domain.Source, url string) []domain.Source {
	last := len(sources) - 1
	if last < 0 {
		return sources
	}
	sources[last].URL = url
	name := sources[last].Name

	for i := range sources {
		if i != last && sources[i].Name == name && sources[i].URL == "" {
			return append(sources[:i], sources[i+1:]...)
		}
	}
	return sources
}

// addName appends a pending entry unless one with the same name exists
func addName(sources []domain.Source, name string) []domain.Source {
	for _, s := range sources {
		if s.Name == name {
			return sources
		}
	}
	return append(sources, domain.Source{Name: name})
}

// upsertFile points the entry named ref.FileName at ref.FilePath,
// appending it when missing
func upsertFile(sources []domain.Source, ref domain.FileRef) []domain.Source {
	for i := range sources {
		if sources[i].Name == ref.FileName {
			sources[i].URL = ref.FilePath
			return sources
		}
	}
	return append(sources, domain.Source{Name: ref.FileName, URL: ref.FilePath})
}
