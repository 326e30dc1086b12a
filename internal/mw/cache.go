package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// snapshot is a complete successful response kept for replay.
type snapshot struct {
	Status int
	Header http.Header
	Body   []byte
}

// replay writes the stored response and marks it as served from cache.
func (s snapshot) replay(c *gin.Context) {
	h := c.Writer.Header()
	for k, v := range s.Header {
		h[k] = v
	}
	h.Set("X-Cache", "HIT")
	c.Writer.WriteHeader(s.Status)
	c.Writer.Write(s.Body)
}

// teeWriter copies everything the handler writes into buf.
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (w *teeWriter) snapshot() snapshot {
	return snapshot{
		Status: w.Status(),
		Header: w.Header().Clone(),
		Body:   bytes.Clone(w.buf.Bytes()),
	}
}

// Cache replays 2xx GET responses from store for ttl, keyed by request URI.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if v, ok := store.Get(key); ok {
			v.(snapshot).replay(c)
			c.Abort()
			return
		}

		tee := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tee
		c.Next()

		if status := tee.Status(); status >= http.StatusOK && status < http.StatusMultipleChoices {
			store.Set(key, tee.snapshot(), ttl)
		}
	}
}

// Invalidate drops every cached response after a successful write request,
// so registrations and sends are visible to the next GET.
func Invalidate(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		if c.Writer.Status() < http.StatusMultipleChoices {
			store.Flush()
		}
	}
}
