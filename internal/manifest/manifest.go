// Package manifest reads declarative refstore manifests.
//
// A manifest names one app and the templates it should contain. YAML and
// TOML are both accepted, chosen by file extension:
//
//	app: support-bot
//	name: Support Bot
//	templates:
//	  - slug: greet
//	    name: Greeting
//	    content: "Hi {{name}}"
//	    promote: stable
//	  - slug: farewell
//	    file: prompts/farewell.txt
//	template_files: "prompts/extra/**/*.md"
//
// Template content comes either inline or from a file relative to the
// manifest. Every file matched by template_files becomes a template whose
// slug is the file name without its extension.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifest is the desired state of one app.
type Manifest struct {
	App           string     `yaml:"app" toml:"app"`
	Name          string     `yaml:"name" toml:"name"`
	Templates     []Template `yaml:"templates" toml:"templates"`
	TemplateFiles string     `yaml:"template_files" toml:"template_files"`

	// Path is the file the manifest was read from.
	Path string `yaml:"-" toml:"-"`
}

// Template is the desired latest content of one template.
type Template struct {
	Slug        string `yaml:"slug" toml:"slug"`
	Name        string `yaml:"name" toml:"name"`
	Description string `yaml:"description" toml:"description"`
	ModelHint   string `yaml:"model_hint" toml:"model_hint"`
	Content     string `yaml:"content" toml:"content"`
	File        string `yaml:"file" toml:"file"`
	Note        string `yaml:"note" toml:"note"`
	// Promote moves this status tag onto the latest version after import.
	Promote string `yaml:"promote" toml:"promote"`
}

// Expand resolves glob patterns into a sorted, de-duplicated list of files.
// A pattern without glob metacharacters must name an existing file.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no manifest matches %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load reads and validates a manifest, inlining file-backed template content.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path

	dir := filepath.Dir(path)
	if m.TemplateFiles != "" {
		extra, err := globTemplates(dir, m.TemplateFiles)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		m.Templates = append(m.Templates, extra...)
	}

	for i := range m.Templates {
		t := &m.Templates[i]
		if t.File == "" {
			continue
		}
		if t.Content != "" {
			return nil, fmt.Errorf("%s: template %q sets both content and file", path, t.Slug)
		}
		body, err := os.ReadFile(filepath.Join(dir, t.File))
		if err != nil {
			return nil, fmt.Errorf("%s: template %q: %w", path, t.Slug, err)
		}
		t.Content = string(body)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest bytes. ext selects the format: ".toml" for TOML,
// anything else for YAML.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	}
	return &m, nil
}

// Validate checks that the manifest names an app and that template slugs
// are present and unique.
func (m *Manifest) Validate() error {
	if m.App == "" {
		return fmt.Errorf("app is required")
	}
	seen := make(map[string]bool, len(m.Templates))
	for i, t := range m.Templates {
		if t.Slug == "" {
			return fmt.Errorf("templates[%d]: slug is required", i)
		}
		if seen[t.Slug] {
			return fmt.Errorf("template %q declared twice", t.Slug)
		}
		seen[t.Slug] = true
	}
	return nil
}

func globTemplates(dir, pattern string) ([]Template, error) {
	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("bad template_files pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)

	templates := make([]Template, 0, len(matches))
	for _, match := range matches {
		base := filepath.Base(match)
		templates = append(templates, Template{
			Slug: strings.TrimSuffix(base, filepath.Ext(base)),
			File: filepath.FromSlash(match),
		})
	}
	return templates, nil
}
