package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle is language -> namespace -> key -> message.
type Bundle map[string]map[string]map[string]string

// Loader reads <lang>/<namespace>.yaml files from a filesystem. JSON files
// are accepted too since they are valid YAML.
type Loader struct {
	fsys fs.FS
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

func isLocaleFile(name string) bool {
	switch path.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Load parses every locale file. A malformed file fails the whole load so a
// broken override never half-replaces a working catalog.
func (l *Loader) Load() (Bundle, error) {
	bundle := Bundle{}
	langs, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}

	for _, lang := range langs {
		if !lang.IsDir() || strings.HasPrefix(lang.Name(), ".") {
			continue
		}
		files, err := fs.ReadDir(l.fsys, lang.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to list %s locales: %w", lang.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !isLocaleFile(f.Name()) {
				continue
			}
			p := path.Join(lang.Name(), f.Name())
			msgs, err := l.loadFile(p)
			if err != nil {
				return nil, err
			}
			ns := strings.TrimSuffix(f.Name(), path.Ext(f.Name()))
			if bundle[lang.Name()] == nil {
				bundle[lang.Name()] = map[string]map[string]string{}
			}
			bundle[lang.Name()][ns] = msgs
		}
	}
	return bundle, nil
}

func (l *Loader) loadFile(p string) (map[string]string, error) {
	data, err := fs.ReadFile(l.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale file %s: %w", p, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse locale file %s: %w", p, err)
	}

	msgs := make(map[string]string, len(raw))
	flatten("", raw, msgs)
	return msgs, nil
}

// flatten turns nested sections into dotted keys: {a: {b: x}} -> a.b = x.
func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Merge overlays src onto dst, key by key.
func (b Bundle) Merge(src Bundle) {
	for lang, namespaces := range src {
		if b[lang] == nil {
			b[lang] = map[string]map[string]string{}
		}
		for ns, msgs := range namespaces {
			if b[lang][ns] == nil {
				b[lang][ns] = map[string]string{}
			}
			for k, v := range msgs {
				b[lang][ns][k] = v
			}
		}
	}
}
