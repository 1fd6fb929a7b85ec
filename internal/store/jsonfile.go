package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// JSONFileStore keeps users and test history in two JSON files, reading and
// rewriting the whole file on every operation. The mutex serialises writers
// within this process only: concurrent processes can still clobber each
// other's appends, which matches the single-instance deployment model.
type JSONFileStore struct {
	mu          sync.RWMutex
	usersPath   string
	historyPath string
}

func NewJSONFileStore(usersPath, historyPath string) (*JSONFileStore, error) {
	for _, p := range []string{usersPath, historyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &JSONFileStore{usersPath: usersPath, historyPath: historyPath}, nil
}

func (s *JSONFileStore) Create(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := readJSONFile[User](s.usersPath)
	if err != nil {
		return User{}, err
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Email, u.Email) {
			return User{}, ErrExists
		}
	}
	u.ID = nextID(len(users), func(i int) int { return users[i].ID })
	users = append(users, u)
	if err := writeJSONFile(s.usersPath, users); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *JSONFileStore) GetByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := readJSONFile[User](s.usersPath)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *JSONFileStore) GetByID(ctx context.Context, id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := readJSONFile[User](s.usersPath)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *JSONFileStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := readJSONFile[User](s.usersPath)
	if err != nil {
		return err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			users[i].PasswordHash = passwordHash
			return writeJSONFile(s.usersPath, users)
		}
	}
	return ErrNotFound
}

func (s *JSONFileStore) Append(ctx context.Context, r ResultRecord) (ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := readJSONFile[ResultRecord](s.historyPath)
	if err != nil {
		return ResultRecord{}, err
	}
	r.ID = nextID(len(history), func(i int) int { return history[i].ID })
	history = append(history, r)
	if err := writeJSONFile(s.historyPath, history); err != nil {
		return ResultRecord{}, err
	}
	return r, nil
}

func (s *JSONFileStore) ListByUser(ctx context.Context, userID int) ([]ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, err := readJSONFile[ResultRecord](s.historyPath)
	if err != nil {
		return nil, err
	}
	out := []ResultRecord{}
	for _, r := range history {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// nextID is max(existing)+1, starting at 1 on an empty collection.
func nextID(n int, idAt func(int) int) int {
	max := 0
	for i := 0; i < n; i++ {
		if id := idAt(i); id > max {
			max = id
		}
	}
	return max + 1
}

func readJSONFile[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func writeJSONFile[T any](path string, items []T) error {
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
