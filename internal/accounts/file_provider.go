package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned when no account exists under an ID.
var ErrAccountNotFound = errors.New("account not found")

// FileProvider serves accounts from a JSON file loaded at startup. The
// host application normally injects its own Provider; this one backs the
// standalone daemon.
type FileProvider struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*Account
}

// NewFileProvider loads the accounts file. A missing file yields an empty
// provider, not an error.
func NewFileProvider(path string, logger *slog.Logger) (*FileProvider, error) {
	p := &FileProvider{accounts: make(map[uuid.UUID]*Account)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("accounts file does not exist, starting empty", "path", path)
			return p, nil
		}
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	var list []*Account
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts file: %w", err)
	}
	for _, account := range list {
		p.accounts[account.ID] = account
	}

	logger.Info("accounts loaded", "path", path, "count", len(list))
	return p, nil
}

// Account resolves an account by ID.
func (p *FileProvider) Account(ctx context.Context, id uuid.UUID) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	account, ok := p.accounts[id]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return account, nil
}
