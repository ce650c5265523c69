package container

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// assignmentScan bounds how far into a text entry the variable prefix may reach.
const assignmentScan = 512

// stripAssignment drops a leading `window.YTD.x.part0 =` style prefix. The
// first '=' only counts when it appears before any JSON delimiter.
func stripAssignment(raw []byte) []byte {
	head := raw[:min(len(raw), assignmentScan)]
	eq := bytes.IndexByte(head, '=')
	if eq < 0 || bytes.ContainsAny(head[:eq], "[{\"") {
		return bytes.TrimSpace(raw)
	}
	return bytes.TrimSpace(raw[eq+1:])
}

func decodePayload(name string, raw []byte, v any) error {
	if err := json.Unmarshal(stripAssignment(raw), v); err != nil {
		return &ParseError{Name: name, Raw: string(raw), Err: err}
	}
	return nil
}
