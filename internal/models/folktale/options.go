package models

import "strings"

func WithTitle(title string) FolktaleOption {
	return func(f *Folktale) { f.Title = strings.TrimSpace(title) }
}

func WithContent(content string) FolktaleOption {
	return func(f *Folktale) { f.Content = strings.TrimSpace(content) }
}

func WithRegion(region string) FolktaleOption {
	return func(f *Folktale) { f.Region = strings.TrimSpace(region) }
}

func WithGenre(genre string) FolktaleOption {
	return func(f *Folktale) { f.Genre = strings.TrimSpace(genre) }
}

func WithAgeGroup(ageGroup string) FolktaleOption {
	return func(f *Folktale) { f.AgeGroup = strings.TrimSpace(ageGroup) }
}

// WithImageURL overwrites the image only when a replacement was uploaded.
func WithImageURL(url string) FolktaleOption {
	return func(f *Folktale) {
		if url != "" {
			f.ImageURL = url
		}
	}
}
