package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FSBucket is a Bucket backed by a directory: objects live at
// <root>/<name>/<key> and are served under <baseURL>/<name>/<key>.
type FSBucket struct {
	root    string
	name    string
	baseURL string
}

// NewFSBucket creates the bucket directory if needed.
func NewFSBucket(root, name, baseURL string) (*FSBucket, error) {
	b := &FSBucket{root: root, name: name, baseURL: strings.TrimRight(baseURL, "/")}
	if err := os.MkdirAll(b.Dir(), 0o755); err != nil {
		return nil, err
	}
	return b, nil
}

// Dir is the directory holding this bucket's objects.
func (b *FSBucket) Dir() string { return filepath.Join(b.root, b.name) }

// Name is the bucket name used in public URLs.
func (b *FSBucket) Name() string { return b.name }

func (b *FSBucket) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	k, err := CleanKey(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dst := filepath.Join(b.Dir(), filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return 0, ErrExists
	}
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return n, nil
}

func (b *FSBucket) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err = os.Remove(filepath.Join(b.Dir(), filepath.FromSlash(k)))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (b *FSBucket) PublicURL(key string) string {
	return b.baseURL + "/" + b.name + "/" + key
}

// KeyFromURL accepts URLs under this bucket's public prefix. Anything else
// (foreign hosts, other buckets, traversal) is rejected.
func (b *FSBucket) KeyFromURL(u string) (string, bool) {
	prefix := b.baseURL + "/" + b.name + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(u, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	if key, err = CleanKey(key); err != nil {
		return "", false
	}
	return key, true
}
