package publisher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/satfire/firewatch/internal/types"
)

// SpoolPublisher drops each notice as a JSON file into a directory that a
// downstream process watches. Files are written to a temporary name and
// renamed so consumers never observe partial writes.
type SpoolPublisher struct {
	dir string
}

var _ Publisher = (*SpoolPublisher)(nil)

func NewSpool(dir string) (*SpoolPublisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create spool directory %v: %v", dir, err)
	}
	return &SpoolPublisher{dir: dir}, nil
}

func (p *SpoolPublisher) Publish(n types.AlarmNotice) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal notice %v: %v", n.UID, err)
	}
	name := fmt.Sprintf("alarm_%s.json", n.UID)
	tmp := filepath.Join(p.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write notice file: %v", err)
	}
	if err := os.Rename(tmp, filepath.Join(p.dir, name)); err != nil {
		return fmt.Errorf("could not publish notice file: %v", err)
	}
	return nil
}

func (p *SpoolPublisher) Close() error {
	return nil
}
