package page

import (
	"fmt"
	"net/url"
	"sync"
)

// Memory is an in-process Page. It records every navigation and DOM mutation
// so tests and headless simulations can assert on the guard's behavior.
type Memory struct {
	mu        sync.RWMutex
	current   *url.URL
	elements  map[string]string // selector -> content
	Replaced  []string
	Assigned  []string
	Reloads   int
	HTMLSets  map[string]string
	TextSets  map[string]string
	BrokenURL bool // simulate an unreadable address
}

// NewMemory creates a Memory page at the given address.
func NewMemory(rawURL string) (*Memory, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	return &Memory{
		current:  u,
		elements: map[string]string{"body": ""},
		HTMLSets: make(map[string]string),
		TextSets: make(map[string]string),
	}, nil
}

// AddElement makes a selector resolvable for Exists/SetHTML/SetText.
func (m *Memory) AddElement(selector string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elements[selector]; !ok {
		m.elements[selector] = ""
	}
}

func (m *Memory) Current() (*url.URL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.BrokenURL {
		return nil, fmt.Errorf("page address unavailable")
	}
	u := *m.current
	return &u, nil
}

func (m *Memory) Replace(u *url.URL) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BrokenURL {
		return fmt.Errorf("page address unavailable")
	}
	c := *u
	m.current = &c
	m.Replaced = append(m.Replaced, u.String())
	return nil
}

func (m *Memory) Assign(u *url.URL) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *u
	m.current = &c
	m.Assigned = append(m.Assigned, u.String())
	return nil
}

func (m *Memory) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reloads++
	return nil
}

func (m *Memory) Exists(selector string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.elements[selector]
	return ok
}

func (m *Memory) SetHTML(selector, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elements[selector]; !ok {
		return fmt.Errorf("no element matches %q", selector)
	}
	m.elements[selector] = html
	m.HTMLSets[selector] = html
	return nil
}

func (m *Memory) SetText(selector, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elements[selector]; !ok {
		return fmt.Errorf("no element matches %q", selector)
	}
	m.elements[selector] = text
	m.TextSets[selector] = text
	return nil
}

// NavigationCount returns how many navigations (assigns + reloads) happened.
func (m *Memory) NavigationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Assigned) + m.Reloads
}
