// Package csvfile loads the public-facility open-data CSV the question
// bank draws from. The files in the wild vary in encoding (UTF-8 with
// or without BOM, Shift-JIS, UTF-16) and delimiter, so the loader
// sniffs both before parsing and never fails hard: the caller gets
// whatever rows could be recovered.
package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"

	"nonoji-quiz-service/internal/domain"
)

var nameKeys = []string{"名称", "施設名", "name", "Name", "名称_通称", "名称_英字"}
var cityKeys = []string{"所在地_市区町村", "市区町村", "市町村", "市町名", "所在地_市町村名"}
var kindKeys = []string{"分類", "種別", "用途", "大分類", "中分類"}
var idKeys = []string{"ID", "_id", "id", "コード"}

// Load reads the facility CSV at path. On any unrecoverable problem it
// returns an error along with whatever rows it managed to parse; the
// caller is expected to log and carry on with fewer question types.
func Load(path string) ([]domain.Facility, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facility csv: %w", err)
	}

	decoders := []struct {
		name string
		enc  encoding.Encoding
	}{
		{"utf-8", unicode.UTF8BOM},
		{"shift-jis", japanese.ShiftJIS},
		{"utf-16", unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
		{"latin-1", charmap.ISO8859_1},
	}

	var lastErr error
	for _, d := range decoders {
		text, err := d.enc.NewDecoder().Bytes(raw)
		if err != nil || !utf8.Valid(text) {
			lastErr = fmt.Errorf("decode %s: %w", d.name, errOr(err))
			continue
		}
		rows, err := parse(text)
		if err != nil {
			lastErr = fmt.Errorf("parse as %s: %w", d.name, err)
			continue
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}

	// Forced read: strip invalid bytes and take whatever parses.
	rows, err := parse(bytes.ToValidUTF8(raw, []byte("")))
	if err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return rows, nil
}

func errOr(err error) error {
	if err != nil {
		return err
	}
	return errors.New("invalid utf-8 after decode")
}

func parse(text []byte) ([]domain.Facility, error) {
	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []domain.Facility
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// skip malformed lines, keep the rest
			continue
		}
		rec := make(map[string]string, len(header))
		for i, field := range record {
			if i < len(header) {
				rec[header[i]] = strings.TrimSpace(field)
			}
		}
		if f, ok := normalize(rec); ok {
			rows = append(rows, f)
		}
	}
	return rows, nil
}

// sniffDelimiter picks the most frequent candidate separator in the
// leading sample.
func sniffDelimiter(text []byte) rune {
	sample := text
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	best, bestCount := ',', bytes.Count(sample, []byte{','})
	for _, c := range []byte{'\t', ';'} {
		if n := bytes.Count(sample, []byte{c}); n > bestCount {
			best, bestCount = rune(c), n
		}
	}
	return best
}

func normalize(rec map[string]string) (domain.Facility, bool) {
	name := pick(rec, nameKeys)
	city := pickCity(rec)
	if name == "" || city == "" {
		return domain.Facility{}, false
	}

	kind := pick(rec, kindKeys)
	// rough park/public-facility label when no explicit kind exists
	label := "公共施設"
	if strings.Contains(kind, "公園") || (kind == "" && strings.Contains(name, "公園")) {
		label = "公園"
	}
	if kind == "" {
		kind = label
	}

	id := pick(rec, idKeys)
	if id == "" {
		id = name + "|" + city
	}
	return domain.Facility{ID: id, Name: name, City: city, Kind: kind}, true
}

// pickCity extracts a municipality name, never a prefecture.
func pickCity(rec map[string]string) string {
	if v := pick(rec, cityKeys); v != "" {
		return v
	}
	// scan the concatenated address for a municipality-suffixed token
	if s := rec["所在地_連結表記"]; s != "" {
		for _, token := range strings.Fields(strings.ReplaceAll(s, "　", " ")) {
			if hasMunicipalitySuffix(token) {
				return token
			}
		}
	}
	// local-government name, but only when it is a municipality
	if v := rec["地方公共団体名"]; hasMunicipalitySuffix(v) {
		return v
	}
	return ""
}

func hasMunicipalitySuffix(s string) bool {
	for _, suffix := range []string{"市", "区", "町", "村"} {
		if s != suffix && strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func pick(rec map[string]string, keys []string) string {
	for _, k := range keys {
		if v := rec[k]; v != "" && v != "null" {
			return v
		}
	}
	return ""
}
