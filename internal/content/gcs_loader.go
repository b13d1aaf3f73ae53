package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

type gcsLoader struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSLoader reads content objects named <prefix><date>.<ext> from a Cloud Storage bucket.
func NewGCSLoader(client *storage.Client, bucketName, prefix string) Loader {
	return &gcsLoader{bucket: client.Bucket(bucketName), prefix: prefix}
}

func (l *gcsLoader) Load(ctx context.Context, date string) (DailyContent, error) {
	if err := checkDate(date); err != nil {
		return DailyContent{}, err
	}

	for _, ext := range supportedExtensions {
		name := l.prefix + date + ext
		data, err := l.read(ctx, name)
		if errors.Is(err, storage.ErrObjectNotExist) {
			continue
		}
		if err != nil {
			return DailyContent{}, err
		}
		return Decode(name, data)
	}
	return DailyContent{}, ErrNotFound
}

func (l *gcsLoader) read(ctx context.Context, name string) ([]byte, error) {
	reader, err := l.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (l *gcsLoader) Dates(ctx context.Context) ([]string, error) {
	it := l.bucket.Objects(ctx, &storage.Query{Prefix: l.prefix})

	seen := make(map[string]bool)
	var dates []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list content objects: %w", err)
		}

		name := strings.TrimPrefix(attrs.Name, l.prefix)
		if strings.Contains(name, "/") {
			continue
		}
		date, ok := dateFromName(name)
		if !ok || seen[date] {
			continue
		}
		seen[date] = true
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}
