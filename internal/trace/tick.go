package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"

	"github.com/udisondev/wayfinder/internal/ai"
)

// Entry is one agent's state at the end of a tick.
type Entry struct {
	Tick     uint64    `json:"tick"`
	Agent    string    `json:"agent"`
	State    string    `json:"state"`
	Position orb.Point `json:"pos"`
	Vitality float64   `json:"vitality"`
	InZone   bool      `json:"in_zone"`
	PathLeft int       `json:"path_left"`
}

// EntryFor captures a's current state.
func EntryFor(tick uint64, a *ai.AgentAI) Entry {
	return Entry{
		Tick:     tick,
		Agent:    a.Name(),
		State:    a.State().String(),
		Position: a.Position(),
		Vitality: a.Vitality().Current(),
		InZone:   a.InsideRecoveryZone(),
		PathLeft: len(a.Path()),
	}
}

// TickLogger writes one JSONL entry per agent per tick (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

// NewTickLogger creates a tick logger writing under dir.
func NewTickLogger(dir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(dir, "ticks"), "ticks")}
}

func (l *TickLogger) WriteTick(e Entry) error { return l.w.Write(e) }
func (l *TickLogger) Close() error            { return l.w.Close() }

// Path returns the file currently being written.
func (l *TickLogger) Path() string { return l.w.CurrentPath() }

// ReadAll decodes every entry of a closed trace file.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
	}
	defer dec.Close()

	var out []Entry
	jd := json.NewDecoder(dec)
	for {
		var e Entry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("decoding trace %s: %w", path, err)
		}
		out = append(out, e)
	}
}
