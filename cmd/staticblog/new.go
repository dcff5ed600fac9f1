package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/eringen/staticblog/scaffold"
)

// scaffoldData holds the template variables passed to every scaffold template.
type scaffoldData struct {
	ProjectName string
	SiteName    string
	Today       string
}

// dotfiles maps scaffold names to the hidden files they become.
var dotfiles = map[string]string{
	"dotenv":    ".env.example",
	"gitignore": ".gitignore",
}

func runNew(name string) error {
	dirName := filepath.Base(filepath.Clean(name))
	if _, err := os.Stat(name); err == nil {
		return fmt.Errorf("directory %q already exists", name)
	}

	data := scaffoldData{
		ProjectName: dirName,
		SiteName:    toTitle(dirName),
		Today:       time.Now().Format("2006-01-02"),
	}

	fmt.Printf("Creating new site: %s\n\n", name)
	if err := writeScaffold(name, data); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Done! Next steps:")
	fmt.Println()
	fmt.Printf("  cd %s\n", name)
	fmt.Println("  cp .env.example .env")
	fmt.Println("  staticblog serve --watch")
	fmt.Println()
	fmt.Println("Set ADMIN_PASSWORD and ADMIN_SESSION_SECRET in .env before deploying.")
	return nil
}

func writeScaffold(dest string, data scaffoldData) error {
	const root = "templates"
	return fs.WalkDir(scaffold.Templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		outPath := strings.TrimSuffix(filepath.Join(dest, relPath), ".tmpl")
		if hidden, ok := dotfiles[filepath.Base(outPath)]; ok {
			outPath = filepath.Join(filepath.Dir(outPath), hidden)
		}

		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}

		raw, err := scaffold.Templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		tmpl, err := template.New(filepath.Base(path)).Parse(string(raw))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}

		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()

		if err := tmpl.Execute(f, data); err != nil {
			return fmt.Errorf("execute template %s: %w", path, err)
		}
		fmt.Printf("  created %s\n", outPath)
		return nil
	})
}

// toTitle converts a hyphenated name to title case: "my-blog" -> "My Blog".
func toTitle(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
