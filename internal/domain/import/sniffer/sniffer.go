// Package sniffer inspects the top of a statement export: it strips byte-order
// marks, detects the field delimiter, and maps raw headers to column roles.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
)

var (
	ErrEmptyFile = errors.New("file is empty or has no headers")
)

// Candidate delimiters. Ties keep the earlier entry, so plain CSV wins.
var delimiters = []rune{',', ';', '\t', '|'}

// FileConfig is what the sniffer learned about the header line.
type FileConfig struct {
	Delimiter   rune
	SkipLines   int
	Headers     []string
	Fingerprint string
}

// DetectConfig reads the header line (after skipLines metadata lines) and
// reports its delimiter and header cells.
func DetectConfig(data []byte, skipLines int) (*FileConfig, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")
	if skipLines >= len(lines) {
		return nil, ErrEmptyFile
	}

	header := CleanLine(lines[skipLines], skipLines == 0)
	if header == "" {
		return nil, ErrEmptyFile
	}

	delimiter := DetectDelimiter(header)
	headers := SplitHeader(header, delimiter)

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
	}, nil
}

// DetectDelimiter returns the candidate delimiter occurring most often in the
// line, or a comma when none occurs.
func DetectDelimiter(line string) rune {
	best := ','
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			best = d
		}
	}
	return best
}

// SplitHeader splits a header line on the delimiter, honouring double quotes.
func SplitHeader(line string, delimiter rune) []string {
	var (
		headers []string
		cell    strings.Builder
		quoted  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == delimiter && !quoted:
			headers = append(headers, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteRune(r)
		}
	}
	return append(headers, strings.TrimSpace(cell.String()))
}

// CleanLine trims line endings and, on the first line, a UTF-8 BOM.
func CleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

// StripBOM removes a leading UTF-8 byte-order mark.
func StripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// Fingerprint hashes the normalized header names so the same bank layout can
// be recognised across uploads.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
