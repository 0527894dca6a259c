package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/gabe/mobwatch/internal/models"
)

// Reader reads journal files back, newest first
type Reader struct {
	dir string
}

// NewReader creates a reader over dir
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Files lists journal files, newest first
func (r *Reader) Files() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix+"-") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		files = append(files, filepath.Join(r.dir, name))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// Read returns up to limit records matching filter, newest first. A limit of
// zero or less means no limit; a nil filter matches everything.
func (r *Reader) Read(limit int, filter func(models.ActivityRecord) bool) ([]models.ActivityRecord, error) {
	files, err := r.Files()
	if err != nil {
		return nil, err
	}

	var out []models.ActivityRecord
	for _, path := range files {
		recs, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		slices.Reverse(recs)
		for _, rec := range recs {
			if filter != nil && !filter(rec) {
				continue
			}
			out = append(out, rec)
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// ReadFile decodes one journal file in write order. A file that is still
// being written may end mid-frame; everything decoded up to that point is
// returned.
func ReadFile(path string) ([]models.ActivityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	var recs []models.ActivityRecord
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var rec models.ActivityRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
