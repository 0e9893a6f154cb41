package block

import (
	"net/http"
	"strings"
)

// Response headers carrying the merged cache metadata of a page.
const (
	HeaderCacheContexts = "X-Cache-Contexts"
	HeaderCacheTags     = "Cache-Tag"
)

// SetCacheHeaders writes the merged cache contexts and tags of fragments to h.
// Nothing is written when there are no fragments.
func SetCacheHeaders(h http.Header, fragments []Fragment) {
	contexts, tags := CacheMetadata(fragments)
	if len(contexts) > 0 {
		h.Set(HeaderCacheContexts, strings.Join(contexts, ","))
	}
	if len(tags) > 0 {
		h.Set(HeaderCacheTags, strings.Join(tags, ","))
	}
}
