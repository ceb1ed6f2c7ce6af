// Package storage keeps uploaded listing images and turns stored references
// into absolute retrieval URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var ErrUnsupportedType = errors.New("only .jpg, .jpeg, .png and .webp images are allowed")

type ImageStore interface {
	// Save stores the image and returns its reference.
	Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	// Qualify rewrites a stored reference into a fully-qualified URL.
	Qualify(ref string) string
}

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageExt validates the file extension and returns it lower-cased with the
// content type it implies.
func ImageExt(filename string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct, ok := allowedExt[ext]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return ext, ct, nil
}

func isAbsoluteURL(ref string) bool {
	low := strings.ToLower(ref)
	return strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://")
}

// QualifyAll applies Qualify to every non-empty reference, preserving order.
func QualifyAll(s ImageStore, refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		out = append(out, s.Qualify(ref))
	}
	return out
}
