package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rami3l/clavy/pkg/sourcestore"
)

type Persister struct {
	file *os.File
	lock sync.Mutex
}

func NewPersister(filename string) (*Persister, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &Persister{file: file}, nil
}

func (p *Persister) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.file.Close()
}

func (p *Persister) Load(_ context.Context) (sourcestore.Sources, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	info, err := p.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	sources := make(sourcestore.Sources)
	if info.Size() == 0 {
		return sources, nil
	}

	_, err = p.file.Seek(0, 0)
	if err != nil {
		return nil, fmt.Errorf("seek to start of file: %w", err)
	}

	dec := json.NewDecoder(p.file)
	err = dec.Decode(&sources)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	return sources, nil
}

func (p *Persister) Save(_ context.Context, sources sourcestore.Sources) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, err := p.file.Seek(0, 0)
	if err != nil {
		return fmt.Errorf("seek to start of file: %w", err)
	}

	err = p.file.Truncate(0)
	if err != nil {
		return fmt.Errorf("truncate file: %w", err)
	}

	enc := json.NewEncoder(p.file)
	enc.SetIndent("", "  ")
	err = enc.Encode(sources)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return p.file.Sync()
}
