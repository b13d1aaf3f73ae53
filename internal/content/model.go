// Package content loads the daily study material and the game definitions attached to it.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/game"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/streak"
)

// ErrNotFound indicates no content is published for the requested date.
var ErrNotFound = errors.New("content not found")

// ErrInvalidDate indicates a date key that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid content date")

// Section is one study unit of the day (Chumash, Tehillim, Tanya, ...).
type Section struct {
	ID    string            `json:"id" yaml:"id"`
	Title string            `json:"title" yaml:"title"`
	Text  string            `json:"text,omitempty" yaml:"text"`
	Games []game.Definition `json:"games,omitempty" yaml:"games"`
}

// DailyContent is everything published for one date.
type DailyContent struct {
	Date     string    `json:"date" yaml:"date"`
	Title    string    `json:"title,omitempty" yaml:"title"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Definitions returns every game of the day in section order.
func (d DailyContent) Definitions() []game.Definition {
	var defs []game.Definition
	for _, s := range d.Sections {
		defs = append(defs, s.Games...)
	}
	return defs
}

// SectionOf returns the id of the section that holds gameID.
func (d DailyContent) SectionOf(gameID string) (string, bool) {
	for _, s := range d.Sections {
		for _, g := range s.Games {
			if g.ID == gameID {
				return s.ID, true
			}
		}
	}
	return "", false
}

// Loader fetches daily content.
type Loader interface {
	Load(ctx context.Context, date string) (DailyContent, error)
	// Dates lists every published date in ascending order.
	Dates(ctx context.Context) ([]string, error)
}

// supportedExtensions are tried in order when looking a date up.
var supportedExtensions = []string{".yaml", ".yml", ".json"}

// Decode parses a YAML or JSON document; the format is picked from name's extension.
// A missing date is taken from the file name.
func Decode(name string, data []byte) (DailyContent, error) {
	var dc DailyContent
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &dc); err != nil {
			return DailyContent{}, fmt.Errorf("decode %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &dc); err != nil {
			return DailyContent{}, fmt.Errorf("decode %s: %w", name, err)
		}
	default:
		return DailyContent{}, fmt.Errorf("decode %s: unsupported extension %q", name, ext)
	}

	if dc.Date == "" {
		dc.Date = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	return dc, nil
}

// dateFromName returns the date key encoded in a content file name.
func dateFromName(name string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	supported := false
	for _, e := range supportedExtensions {
		if e == ext {
			supported = true
			break
		}
	}
	if !supported {
		return "", false
	}
	date := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if _, err := streak.ParseDate(date); err != nil {
		return "", false
	}
	return date, true
}

func checkDate(date string) error {
	if _, err := streak.ParseDate(date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}
