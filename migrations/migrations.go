package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Files returns the migration file names for direction ("up" or "down") in
// the order they must be applied.
func Files(direction string) ([]string, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}

	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), fmt.Sprintf(".%s.sql", direction)) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	if direction == "down" {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}

	return names, nil
}

// Apply runs every migration for direction against db and returns the file
// names that were executed.
func Apply(db *sql.DB, direction string) ([]string, error) {
	names, err := Files(direction)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		content, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return nil, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return names, nil
}
