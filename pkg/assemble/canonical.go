package assemble

import (
	"bytes"
	"sort"
)

// gofpdi writes the /Resources dictionaries of imported page templates in Go
// map-iteration order, so two runs over identical input differ byte-for-byte.
// canonicalizeResources sorts the entries of every such dictionary, nested
// dictionaries included. Dictionary entry order carries no meaning in PDF and
// sorting only permutes bytes in place, so object lengths, stream lengths,
// and xref offsets all stay valid.
func canonicalizeResources(pdf []byte) []byte {
	out := make([]byte, 0, len(pdf))
	rest := pdf
	for {
		idx := bytes.Index(rest, []byte("/Resources"))
		if idx < 0 {
			return append(out, rest...)
		}
		cursor := idx + len("/Resources")
		for cursor < len(rest) && isPDFSpace(rest[cursor]) {
			cursor++
		}
		if cursor+1 >= len(rest) || rest[cursor] != '<' || rest[cursor+1] != '<' {
			// Indirect reference or malformed; leave untouched.
			out = append(out, rest[:cursor]...)
			rest = rest[cursor:]
			continue
		}
		end := dictEnd(rest, cursor)
		if end < 0 {
			out = append(out, rest[:cursor]...)
			rest = rest[cursor:]
			continue
		}
		out = append(out, rest[:cursor+2]...)
		out = append(out, sortDictBody(rest[cursor+2:end-2])...)
		out = append(out, rest[end-2:end]...)
		rest = rest[end:]
	}
}

// dictEnd returns the index just past the ">>" matching the "<<" at start,
// or -1 when unbalanced. Literal and hex strings are skipped so delimiters
// inside them do not confuse the depth count.
func dictEnd(data []byte, start int) int {
	depth := 0
	i := start
	for i < len(data) {
		switch {
		case i+1 < len(data) && data[i] == '<' && data[i+1] == '<':
			depth++
			i += 2
		case i+1 < len(data) && data[i] == '>' && data[i+1] == '>':
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		case data[i] == '(':
			i = skipLiteralString(data, i)
		case data[i] == '<':
			for i < len(data) && data[i] != '>' {
				i++
			}
			i++
		default:
			i++
		}
	}
	return -1
}

// sortDictBody reorders the top-level key-value entries of a dictionary body
// (the bytes between "<<" and ">>") into key order, recursing into values
// that are themselves dictionaries. Whitespace that separated entries
// collects at the tail so the dictionary keeps its exact byte length and the
// result does not depend on where the separators sat in the input.
func sortDictBody(body []byte) []byte {
	prefix, entries := splitEntries(body)
	if len(entries) == 0 {
		return body
	}
	sorted := make([][]byte, len(entries))
	for i, e := range entries {
		sorted[i] = canonicalizeEntry(trimPDFSpace(e))
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		return bytes.Compare(entryKey(sorted[a]), entryKey(sorted[b])) < 0
	})
	out := make([]byte, 0, len(body))
	if len(bytes.TrimLeft(prefix, "\x00\t\n\f\r ")) > 0 {
		out = append(out, prefix...)
	}
	for _, e := range sorted {
		out = append(out, e...)
	}
	for len(out) < len(body) {
		out = append(out, ' ')
	}
	return out
}

// trimPDFSpace drops trailing PDF whitespace from an entry.
func trimPDFSpace(entry []byte) []byte {
	end := len(entry)
	for end > 0 && isPDFSpace(entry[end-1]) {
		end--
	}
	return entry[:end]
}

// splitEntries cuts a dictionary body into its top-level entries, each
// spanning from its key name to the start of the next key. A name appearing
// directly after a key is that key's value, not a new entry.
func splitEntries(body []byte) ([]byte, [][]byte) {
	i := 0
	for i < len(body) && body[i] != '/' {
		i++
	}
	prefix := body[:i]

	var entries [][]byte
	for i < len(body) {
		start := i
		i++ // key slash
		for i < len(body) && isPDFRegular(body[i]) {
			i++
		}
		j := i
		for j < len(body) && isPDFSpace(body[j]) {
			j++
		}
		if j < len(body) && body[j] == '/' {
			// Name value, e.g. "/Type /OCG".
			i = j + 1
			for i < len(body) && isPDFRegular(body[i]) {
				i++
			}
		}
		depth := 0
		for i < len(body) {
			if depth == 0 && body[i] == '/' {
				break
			}
			switch {
			case i+1 < len(body) && body[i] == '<' && body[i+1] == '<':
				depth++
				i += 2
			case i+1 < len(body) && body[i] == '>' && body[i+1] == '>':
				depth--
				i += 2
			case body[i] == '[':
				depth++
				i++
			case body[i] == ']':
				depth--
				i++
			case body[i] == '(':
				i = skipLiteralString(body, i)
			case body[i] == '<':
				for i < len(body) && body[i] != '>' {
					i++
				}
				i++
			default:
				i++
			}
		}
		entries = append(entries, body[start:i])
	}
	return prefix, entries
}

// canonicalizeEntry sorts the first dictionary value found inside an entry.
func canonicalizeEntry(entry []byte) []byte {
	for i := 0; i+1 < len(entry); i++ {
		if entry[i] == '(' {
			i = skipLiteralString(entry, i) - 1
			continue
		}
		if entry[i] == '<' && entry[i+1] == '<' {
			end := dictEnd(entry, i)
			if end < 0 {
				return entry
			}
			out := make([]byte, 0, len(entry))
			out = append(out, entry[:i+2]...)
			out = append(out, sortDictBody(entry[i+2:end-2])...)
			out = append(out, entry[end-2:]...)
			return out
		}
	}
	return entry
}

// skipLiteralString advances past a "(...)" string starting at i, honoring
// backslash escapes.
func skipLiteralString(data []byte, i int) int {
	i++
	for i < len(data) && data[i] != ')' {
		if data[i] == '\\' {
			i++
		}
		i++
	}
	return i + 1
}

// entryKey returns the key name of an entry, without the leading slash.
func entryKey(entry []byte) []byte {
	i := 1
	for i < len(entry) && isPDFRegular(entry[i]) {
		i++
	}
	return entry[1:i]
}

func isPDFSpace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFRegular(b byte) bool {
	if isPDFSpace(b) {
		return false
	}
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}
