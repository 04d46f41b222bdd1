package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/anchor/internal/core/ports/driven"
	"github.com/custodia-labs/anchor/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads prompt templates from user-editable files on disk,
// falling back to embedded defaults.
//
// Initialisation is lazy: the directory and default files are created on
// the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptCitationSystem: `You answer questions about the user's own content. Every entity below is labelled with a short ID in square brackets.

Cite every claim inline with the compact form [quoted or paraphrased text]{ID}, for example [rewrote the ledger cache]{BR1}.
- Use only IDs that appear below. Never invent an ID.
- Derived points may be cited as [Echo Point 3]{EP3} or with the shorthand [Echo P3].
- Media moments are cited as [T42s]{PG1:talk.mp3}.
- Web results are cited with {WEB1}, {WEB2}, and external profiles with {LINKEDIN} or {GITHUB}.

Content:
%s`,

	driven.PromptRetrievalContext: `The following excerpts were retrieved for this question. Each is prefixed with the ID to cite.

%s`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.anchor/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".anchor", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// A customised file that lost its %s placeholder is ignored in favour of
// the default, since formatting it would drop the content.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return fallback, nil
	}

	s.mu.RLock()
	prompt, cached := s.cache[name]
	s.mu.RUnlock()
	if cached {
		return prompt, nil
	}

	prompt, err := s.readPrompt(name)
	switch {
	case err != nil:
		prompt = fallback
	case strings.Count(prompt, "%s") != 1:
		logger.Warn("Prompt %s must contain exactly one %%s placeholder, using default", s.promptFile(name))
		prompt = fallback
	}

	s.mu.Lock()
	if existing, ok := s.cache[name]; ok {
		prompt = existing
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) promptFile(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

// initialise creates the prompt directory and writes any missing defaults.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := s.promptFile(name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}
}

func (s *PromptStore) readPrompt(name string) (string, error) {
	data, err := os.ReadFile(s.promptFile(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
