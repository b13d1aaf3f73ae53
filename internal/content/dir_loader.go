package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

type dirLoader struct {
	fsys fs.FS
}

// NewDirLoader reads <date>.yaml, <date>.yml or <date>.json files from dir.
func NewDirLoader(dir string) Loader {
	return &dirLoader{fsys: os.DirFS(dir)}
}

// NewFSLoader reads content files from the root of fsys.
func NewFSLoader(fsys fs.FS) Loader {
	return &dirLoader{fsys: fsys}
}

func (l *dirLoader) Load(_ context.Context, date string) (DailyContent, error) {
	if err := checkDate(date); err != nil {
		return DailyContent{}, err
	}

	for _, ext := range supportedExtensions {
		name := date + ext
		data, err := fs.ReadFile(l.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return DailyContent{}, fmt.Errorf("read %s: %w", name, err)
		}
		return Decode(name, data)
	}
	return DailyContent{}, ErrNotFound
}

func (l *dirLoader) Dates(_ context.Context) ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	seen := make(map[string]bool)
	var dates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := dateFromName(entry.Name())
		if !ok || seen[date] {
			continue
		}
		seen[date] = true
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}
