package block

import (
	"fmt"
	"strings"

	"golang.org/x/text/message"
)

// Fragment is what a block hands to the page assembly. A zero Fragment renders
// nothing.
type Fragment struct {
	URL           string   `json:"url"`
	Label         string   `json:"label"`
	CSSClasses    []string `json:"css_classes"`
	CacheContexts []string `json:"cache_contexts"`
	CacheTags     []string `json:"cache_tags"`
}

// IsEmpty reports whether the fragment has no link to render.
func (f Fragment) IsEmpty() bool {
	return f.URL == ""
}

// GroupCacheTag is the cache tag invalidated whenever the group changes.
func GroupCacheTag(groupID string) string {
	return "group:" + groupID
}

// LinkRenderer builds the add link for one content type.
type LinkRenderer struct {
	Type   ContentType
	Routes RouteBuilder
}

// Render returns the link fragment for group. A nil group yields an empty
// fragment and no error. p translates the label; a nil printer keeps the
// label as configured.
func (lr LinkRenderer) Render(group Group, p *message.Printer) (Fragment, error) {
	if group == nil {
		return Fragment{}, nil
	}
	url, err := lr.Routes.URL(RouteContentCreateForm, map[string]string{
		"group":     group.GroupID(),
		"plugin_id": lr.Type.PluginID(),
	})
	if err != nil {
		return Fragment{}, fmt.Errorf("render %s: %w", lr.Type.BlockID(), err)
	}

	label := Translate(p, lr.Type.Label)

	classes := make([]string, len(LinkClasses))
	copy(classes, LinkClasses)

	return Fragment{
		URL:           url,
		Label:         label,
		CSSClasses:    classes,
		CacheContexts: []string{CacheContextURLPath},
		CacheTags:     []string{GroupCacheTag(group.GroupID())},
	}, nil
}

// Translate looks key up in the catalog of p. Untranslated keys come back
// verbatim, including any '%'. A nil printer returns key.
func Translate(p *message.Printer, key string) string {
	if p == nil {
		return key
	}
	return p.Sprintf(message.Key(key, strings.ReplaceAll(key, "%", "%%")))
}
