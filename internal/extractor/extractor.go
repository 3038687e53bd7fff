// Package extractor turns uploaded statement documents into the raw text
// lines the parsers consume. PDF text layers are read with ledongthuc/pdf;
// plain text files pass through unchanged.
package extractor

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// FromReader splits a plain text statement into lines, dropping blank ones.
func FromReader(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read statement text: %w", err)
	}
	return lines, nil
}

// FromPDF extracts the text layer of a PDF statement and returns it as
// lines. Image-only or custom-font PDFs that yield no readable text are
// rejected rather than passed on as garbage.
func FromPDF(filePath string) ([]string, error) {
	pages, err := extractPages(filePath)
	if err != nil {
		return nil, fmt.Errorf("PDF text extraction failed: %w. The PDF may be image-based or use custom font encodings", err)
	}
	if !isReadableText(pages) {
		return nil, fmt.Errorf("no readable text could be extracted from PDF; the file may be scanned or image-based")
	}

	var lines []string
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// textQuality returns the ratio of plain ASCII statement characters to total
// characters. unicode.IsLetter is too broad here: identity-encoded fonts
// produce accented garbage that it would count as readable.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(`.,-/:;()'"#%&@!?+=*`, r) ||
				r == '£' || r == '$' || r == '€' {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// statementWords appear in virtually all bank statements. Extracted text
// containing none of them is treated as garbage.
var statementWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction",
	"opening", "closing", "transfer", "number", "page", "period",
}

func containsStatementWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range statementWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires enough text, a high readable-ASCII ratio, and at
// least one recognizable statement word.
func isReadableText(pages []string) bool {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	if total <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsStatementWords(pages)
}
