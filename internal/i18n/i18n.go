// Package i18n loads the embedded message catalogs into golang.org/x/text and
// picks the language for a request.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the viewer's language preference.
	LangCookieName = "gb_lang"
)

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Catalog holds the messages for every locale found on disk.
type Catalog struct {
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag

	// locale -> key -> translation
	messages map[string]map[string]string
}

// LoadEmbedded loads the catalogs shipped with the binary. defaultLocale
// becomes the fallback and must be one of them.
func LoadEmbedded(defaultLocale string) (*Catalog, error) {
	return LoadFromFS(embeddedFS, defaultLocale)
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFromFS(fsys fs.FS, defaultLocale string) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	c := &Catalog{messages: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		dir := path.Base(path.Dir(p))
		if f.Locale != dir {
			return nil, fmt.Errorf("catalog %s: locale %q must match path locale %q", p, f.Locale, dir)
		}
		msgs := c.messages[f.Locale]
		if msgs == nil {
			msgs = map[string]string{}
			c.messages[f.Locale] = msgs
		}
		for k, v := range f.Messages {
			if _, dup := msgs[k]; dup {
				return nil, fmt.Errorf("catalog %s: duplicate key %q", p, k)
			}
			msgs[k] = v
		}
	}

	fallback, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("default locale %q: %w", defaultLocale, err)
	}
	if _, ok := c.messages[fallback.String()]; !ok {
		return nil, fmt.Errorf("default locale %s has no catalog", defaultLocale)
	}
	c.fallback = fallback

	// The matcher prefers its first tag when nothing matches.
	c.tags = []language.Tag{fallback}
	locales := make([]string, 0, len(c.messages))
	for l := range c.messages {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	for _, l := range locales {
		if l == fallback.String() {
			continue
		}
		c.tags = append(c.tags, language.MustParse(l))
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

// Register installs every message into the x/text default catalog.
func (c *Catalog) Register() error {
	for locale, msgs := range c.messages {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		for k, v := range msgs {
			if err := message.SetString(tag, k, v); err != nil {
				return fmt.Errorf("register %s %q: %w", locale, k, err)
			}
		}
	}
	return nil
}

// Supported returns the loaded tags, default first.
func (c *Catalog) Supported() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}

// Match returns the supported tag closest to the given preferences.
func (c *Catalog) Match(prefs ...language.Tag) language.Tag {
	_, idx, conf := c.matcher.Match(prefs...)
	if conf == language.No {
		return c.fallback
	}
	return c.tags[idx]
}

// ResolveTag picks the language for r from the lang query parameter, the
// language cookie, then Accept-Language. The bool reports whether the query
// parameter chose it and should be persisted.
func (c *Catalog) ResolveTag(r *http.Request) (language.Tag, bool) {
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return c.Match(tag), true
		}
	}
	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, err := language.Parse(cookie.Value); err == nil {
			return c.Match(tag), false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return c.Match(tags...), false
		}
	}
	return c.fallback, false
}

// Printer returns a message printer for the request, setting the language
// cookie when the query parameter chose the language.
func (c *Catalog) Printer(w http.ResponseWriter, r *http.Request) *message.Printer {
	tag, persist := c.ResolveTag(r)
	if persist && w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     LangCookieName,
			Value:    tag.String(),
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			SameSite: http.SameSiteLaxMode,
		})
	}
	return message.NewPrinter(tag)
}
