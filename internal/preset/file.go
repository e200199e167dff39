package preset

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// File is the on-disk preset format
type File struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Settings  Document  `json:"settings"`
}

// MalformedFileError means the preset file is not valid JSON or not the
// expected shape
type MalformedFileError struct {
	Err error
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("invalid preset file: %v", e.Err)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

func WriteFile(w io.Writer, name string, doc *Document, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(File{Name: name, Timestamp: now.UTC(), Settings: *doc})
}

func ReadFile(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &MalformedFileError{Err: err}
	}
	return &f, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName turns a user label into a download file name
func FileName(label string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(label), "_"), "._")
	if name == "" {
		name = "preset"
	}
	return name + ".json"
}
