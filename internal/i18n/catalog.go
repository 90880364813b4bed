// Package i18n serves the translated UI strings of every screen.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

//go:embed locales
var embedded embed.FS

// Fallback is the language used when neither the requested nor the
// configured default language has a message.
const Fallback = "en"

// Catalog holds the loaded messages. Reload swaps the whole bundle at once.
type Catalog struct {
	mu       sync.RWMutex
	bundle   Bundle
	langs    []string
	matcher  language.Matcher
	loadedAt time.Time

	defaultLang string
	overrideDir string
	logger      logger.Logger
}

func NewCatalog(defaultLang, overrideDir string, log logger.Logger) *Catalog {
	if defaultLang == "" {
		defaultLang = Fallback
	}
	return &Catalog{
		bundle:      Bundle{},
		defaultLang: defaultLang,
		overrideDir: overrideDir,
		logger:      log,
	}
}

// OverrideDir is the optional directory layered over the embedded files.
func (c *Catalog) OverrideDir() string { return c.overrideDir }

// Reload reads the embedded locales and the override directory and swaps them in.
func (c *Catalog) Reload() error {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return err
	}
	bundle, err := NewLoader(sub).Load()
	if err != nil {
		return fmt.Errorf("embedded locales: %w", err)
	}

	if c.overrideDir != "" {
		over, err := NewLoader(os.DirFS(c.overrideDir)).Load()
		if err != nil {
			return fmt.Errorf("override locales: %w", err)
		}
		bundle.Merge(over)
	}

	c.swap(bundle)
	c.logger.Info("locales loaded",
		logger.Strings("languages", c.Languages()),
		logger.String("override", c.overrideDir))
	return nil
}

func (c *Catalog) swap(bundle Bundle) {
	langs := make([]string, 0, len(bundle))
	for lang := range bundle {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	// the matcher falls back to its first tag
	for i, l := range langs {
		if l == c.defaultLang {
			langs[0], langs[i] = langs[i], langs[0]
			break
		}
	}

	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		tags = append(tags, language.Make(l))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundle = bundle
	c.langs = langs
	c.matcher = language.NewMatcher(tags)
	c.loadedAt = time.Now()
}

func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Languages lists the loaded languages, default first.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.langs...)
}

func (c *Catalog) Supported(lang string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.bundle[lang]
	return ok
}

// Match picks the best loaded language for an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.langs) == 0 {
		return c.defaultLang
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.langs[0]
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.langs[0]
	}
	return c.langs[idx]
}

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// T returns the message for key, trying lang, then the default language,
// then English. A missing message renders the key itself. args are
// name, value pairs substituted into {{name}} placeholders.
func (c *Catalog) T(lang, ns, key string, args ...any) string {
	msg, ok := c.lookup(lang, ns, key)
	if !ok {
		return key
	}
	if len(args) < 2 {
		return msg
	}

	vals := make(map[string]string, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		vals[fmt.Sprint(args[i])] = fmt.Sprint(args[i+1])
	}
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vals[name]; ok {
			return v
		}
		return m
	})
}

func (c *Catalog) lookup(lang, ns, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range [...]string{lang, c.defaultLang, Fallback} {
		if msg, ok := c.bundle[l][ns][key]; ok {
			return msg, true
		}
	}
	return "", false
}
