// Package docparse converts uploaded reference files into Markdown.
package docparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/nao1215/markdown"
)

// ErrUnsupported is returned for file types that cannot be converted.
var ErrUnsupported = errors.New("unsupported file type")

// Converter turns raw file content into Markdown.
type Converter func(data []byte) (string, error)

var converters = map[string]Converter{
	"md":       verbatim,
	"markdown": verbatim,
	"txt":      verbatim,
	"html":     fromHTML,
	"htm":      fromHTML,
	"csv":      fromCSV,
}

// FileType returns the normalised type of a filename (its extension).
func FileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Supported reports whether a file type can be converted.
func Supported(fileType string) bool {
	_, ok := converters[fileType]
	return ok
}

// Convert converts data of the given file type to Markdown.
func Convert(fileType string, data []byte) (string, error) {
	conv, ok := converters[strings.ToLower(fileType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, fileType)
	}
	out, err := conv(data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func verbatim(data []byte) (string, error) {
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

func fromHTML(data []byte) (string, error) {
	out, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to convert html: %w", err)
	}
	return out, nil
}

func fromCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return "", nil
	}

	header := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	if err := md.Build(); err != nil {
		return "", fmt.Errorf("failed to render table: %w", err)
	}
	return buf.String(), nil
}
