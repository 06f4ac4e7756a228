package span

import (
	"bytes"
	"encoding/gob"
)

// gobSpan is the exported shadow of Span's private fields, letting Span
// round-trip through encoding/gob (internal/cache persists cached
// executables this way) without making its fields part of the public
// API. The tagged-field shape mirrors the original compiler's own
// Span::encode_impl/decode_impl pair (endec.rs), just carried as plain
// struct fields instead of a hand-rolled tag byte + payload.
type gobSpan struct {
	Kind    Kind
	File    FileID
	Start   int
	End     int
	Name    string
	Derived DerivationKind
}

// GobEncode implements gob.GobEncoder.
func (s Span) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	g := gobSpan{Kind: s.kind, File: s.file, Start: s.start, End: s.end, Name: s.name, Derived: s.derived}
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (s *Span) GobDecode(data []byte) error {
	var g gobSpan
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return err
	}
	s.kind, s.file, s.start, s.end, s.name, s.derived = g.Kind, g.File, g.Start, g.End, g.Name, g.Derived
	return nil
}
