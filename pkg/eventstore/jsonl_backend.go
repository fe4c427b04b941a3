package eventstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLBackend is the durable append-only backend: one StoredEvent per
// line, opened append-only for every write and closed on every path. The
// file is never rewritten or truncated.
type JSONLBackend struct {
	path string
	mu   sync.Mutex
}

// NewJSONLBackend creates the parent directory if missing and returns a
// backend bound to path. It does not read the file; call Recover for that.
func NewJSONLBackend(path string) (*JSONLBackend, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("eventstore: create event log directory: %w", err)
		}
	}
	return &JSONLBackend{path: path}, nil
}

// Append writes batch as one line each in a single write followed by an
// OS-level flush to the device. Recover does not track batch boundaries: if
// a crash tears the write, the complete lines before the tear are recovered
// and the torn line is skipped.
func (b *JSONLBackend) Append(batch []StoredEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var buf []byte
	for _, ev := range batch {
		line, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("eventstore: marshal stored event: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("eventstore: open event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("eventstore: write event log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("eventstore: fsync event log: %w", err)
	}
	return nil
}

// Recover reads every surviving line of the backing file in order. Lines
// that fail to parse or lack a mandatory field are skipped silently, since a
// crash can tear the final line of the file.
func (b *JSONLBackend) Recover() ([]StoredEvent, error) {
	f, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("eventstore: open event log for recovery: %w", err)
	}
	defer func() { _ = f.Close() }()

	var recovered []StoredEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev StoredEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if ev.StreamID == "" || ev.Version == 0 || ev.GlobalPosition == 0 {
			continue
		}
		recovered = append(recovered, ev)
	}
	return recovered, nil
}
