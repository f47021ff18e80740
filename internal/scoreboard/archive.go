package scoreboard

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// archiveVersion is the current archive record schema version.
const archiveVersion = 2

// ArchiveTeam is one team inside an archive record. Field names are a
// single letter to keep the encoded token short.
type ArchiveTeam struct {
	Name    string `json:"n"`
	ColorBG string `json:"b"`
	ColorFG string `json:"f"`
}

// ArchiveRecord is the self-contained result of a finished match. The
// token built from it is the only thing the archive viewer receives;
// no server-side lookup happens, so everything needed to render the
// result is in here.
type ArchiveRecord struct {
	Version  int         `json:"v"`
	Date     int64       `json:"d"`
	Location string      `json:"l"`
	A        ArchiveTeam `json:"a"`
	B        ArchiveTeam `json:"b"`
	History  [][]int     `json:"h"`
}

// EncodeArchive serializes a record to compact JSON, compresses it,
// and encodes the result with padding-free URL-safe base64.
func EncodeArchive(rec ArchiveRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshaling archive record: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("compressing archive record: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compressing archive record: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeArchive reverses EncodeArchive. Tokens with base64 padding are
// accepted too.
func DecodeArchive(token string) (ArchiveRecord, error) {
	var rec ArchiveRecord

	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return rec, fmt.Errorf("decoding archive token: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return rec, fmt.Errorf("decompressing archive token: %w", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		return rec, fmt.Errorf("decompressing archive token: %w", err)
	}
	if err := zr.Close(); err != nil {
		return rec, fmt.Errorf("decompressing archive token: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parsing archive record: %w", err)
	}
	return rec, nil
}

// archiveToken encodes the match behind e. e.mu must be held.
func (s *Store) archiveToken(e *matchEntry) (string, error) {
	return EncodeArchive(ArchiveRecord{
		Version:  archiveVersion,
		Date:     s.now().Unix(),
		Location: e.static.Location,
		A:        ArchiveTeam{Name: e.static.A.Name, ColorBG: e.static.A.ColorBG, ColorFG: e.static.A.ColorFG},
		B:        ArchiveTeam{Name: e.static.B.Name, ColorBG: e.static.B.ColorBG, ColorFG: e.static.B.ColorFG},
		History:  copyHistory(e.state.History),
	})
}

// EncodeState builds the archive token for a match, for callers outside
// an action (the scoreboard redirect and late stream joins).
func (s *Store) EncodeState(matchID string) (string, error) {
	e := s.lookup(matchID)
	if e == nil {
		return "", ErrMatchNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.archiveToken(e)
}
