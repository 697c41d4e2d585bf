// Package storage provides the object bucket backing prompt attachments.
//
// Objects are addressed by slash-separated keys of the form
// <owner>[/<segment>]/<unix-millis>-<rand>.<ext>. The first key segment is
// always the owning user, which is what the HTTP layer checks before writes
// and deletes.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("object already exists")
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for empty, absolute or traversing keys.
	ErrInvalidKey = errors.New("invalid object key")
)

// Bucket stores opaque objects and exposes them through public URLs.
type Bucket interface {
	// Put writes r under key. It never overwrites.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the URL an object is served from.
	PublicURL(key string) string
	// KeyFromURL recovers the key from a URL produced by PublicURL.
	KeyFromURL(u string) (string, bool)
}

// ObjectKey builds a fresh key for a file owned by owner. segment is an
// optional sub-folder (for example a prompt id); ext is taken from fileName.
func ObjectKey(owner, segment, fileName string, now time.Time) string {
	name := strconv.FormatInt(now.UnixMilli(), 10) + "-" + randToken()
	if ext := strings.TrimPrefix(path.Ext(fileName), "."); ext != "" {
		name += "." + strings.ToLower(ext)
	}
	parts := []string{owner}
	if s := strings.Trim(segment, "/"); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(append(parts, name), "/")
}

// Owner returns the first segment of key.
func Owner(key string) string {
	owner, _, _ := strings.Cut(strings.TrimPrefix(key, "/"), "/")
	return owner
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" || strings.HasPrefix(k, "/") || strings.Contains(k, `\`) {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(k, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidKey
		}
	}
	if !strings.Contains(k, "/") {
		return "", ErrInvalidKey
	}
	return k, nil
}

func randToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
