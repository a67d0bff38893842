package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/format"
	"finitefield.org/zephyr-web/internal/i18n"
	"finitefield.org/zephyr-web/internal/observability"
)

// templateSet parses every .tmpl file under dir. In dev mode templates are reparsed on each
// lookup so edits show up without a restart.
type templateSet struct {
	dir   string
	dev   bool
	funcs template.FuncMap

	mu    sync.RWMutex
	cache *template.Template
}

func newTemplateSet(dir string, dev bool, bundle *i18n.Bundle, currencySymbol string) (*templateSet, error) {
	ts := &templateSet{
		dir: dir,
		dev: dev,
		funcs: template.FuncMap{
			"t": bundle.T,
			"tf": func(lang, key string, args ...any) string {
				return bundle.Tf(lang, key, args...)
			},
			"price": func(d decimal.Decimal) string {
				return format.Price(d, currencySymbol)
			},
			"stars": format.Stars,
			"inc":   func(i int) int { return i + 1 },
			"safeJS": func(s string) template.JS {
				return template.JS(s)
			},
		},
	}
	t, err := ts.parse()
	if err != nil {
		return nil, err
	}
	ts.cache = t
	return ts, nil
}

func (ts *templateSet) parse() (*template.Template, error) {
	// Recursively discover and parse all .tmpl files. Note: ParseGlob doesn't support **.
	var files []string
	if err := filepath.WalkDir(ts.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", ts.dir)
	}
	return template.New("_root").Funcs(ts.funcs).ParseFiles(files...)
}

func (ts *templateSet) lookup() (*template.Template, error) {
	if ts.dev {
		t, err := ts.parse()
		if err != nil {
			return nil, err
		}
		ts.mu.Lock()
		ts.cache = t
		ts.mu.Unlock()
		return t, nil
	}
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.cache, nil
}

// render executes one or more named templates into a buffer first so a failing template never
// leaves a half-written response.
func (ts *templateSet) render(w http.ResponseWriter, r *http.Request, status int, data any, names ...string) {
	t, err := ts.lookup()
	if err != nil {
		observability.FromContext(r.Context()).Error("template parse failed", zap.Error(err))
		http.Error(w, "template parse error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	for _, name := range names {
		if err := t.ExecuteTemplate(&buf, name, data); err != nil {
			observability.FromContext(r.Context()).Error("template exec failed", zap.String("template", name), zap.Error(err))
			http.Error(w, "template exec error", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
