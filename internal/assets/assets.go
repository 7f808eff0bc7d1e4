// Package assets serves the static files of release builds from memory,
// minified once at startup.
package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

type Asset struct {
	Body        []byte
	ContentType string
	ETag        string
}

type Store struct {
	files map[string]*Asset
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/javascript", js.Minify)
	return m
}

// Load reads every file of fsys. CSS and JavaScript are minified when
// minifyAssets is set.
func Load(fsys fs.FS, minifyAssets bool) (*Store, error) {
	m := newMinifier()
	s := &Store{files: map[string]*Asset{}}

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		ct := contentType(name)
		if minifyAssets {
			if mediatype := minifyType(name); mediatype != "" {
				var out bytes.Buffer
				if err := m.Minify(mediatype, &out, bytes.NewReader(body)); err != nil {
					return fmt.Errorf("minify %s: %w", name, err)
				}
				body = out.Bytes()
			}
		}
		sum := sha256.Sum256(body)
		s.files[name] = &Asset{
			Body:        body,
			ContentType: ct,
			ETag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load static assets: %w", err)
	}
	return s, nil
}

func minifyType(name string) string {
	switch path.Ext(name) {
	case ".css":
		return "text/css"
	case ".js":
		return "text/javascript"
	}
	return ""
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (s *Store) Get(name string) (*Asset, bool) {
	a, ok := s.files[strings.TrimPrefix(path.Clean("/"+name), "/")]
	return a, ok
}

func (s *Store) Len() int {
	return len(s.files)
}

// Handler serves the file named by the *filepath route parameter.
func (s *Store) Handler(maxAge int) gin.HandlerFunc {
	cacheControl := "public, max-age=" + strconv.Itoa(maxAge)
	return func(c *gin.Context) {
		a, ok := s.Get(c.Param("filepath"))
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.Header("Cache-Control", cacheControl)
		c.Header("ETag", a.ETag)
		if c.GetHeader("If-None-Match") == a.ETag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Data(http.StatusOK, a.ContentType, a.Body)
	}
}
