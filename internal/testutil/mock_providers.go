package testutil

import (
	"context"
	"strconv"
	"sync"
)

// MockLLM is a scripted llm.Provider.
type MockLLM struct {
	mu sync.Mutex

	GenerateOut string
	GenerateErr error
	CaptionOut  string
	CaptionErr  error

	GenerateCalls int
	CaptionCalls  int
	Prompts       []string
}

func (m *MockLLM) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	return m.GenerateOut, nil
}

func (m *MockLLM) Caption(_ context.Context, _ []byte, instruction string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CaptionCalls++
	if m.CaptionErr != nil {
		return "", m.CaptionErr
	}
	return m.CaptionOut, nil
}

func (m *MockLLM) Close() error { return nil }

func (m *MockLLM) Generations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GenerateCalls
}

func (m *MockLLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}

// MockSTT is a scripted stt.Provider.
type MockSTT struct {
	mu sync.Mutex

	Text string
	Conf float64
	Err  error

	Calls int
}

func (m *MockSTT) Transcribe(_ context.Context, _ []byte, _ string) (string, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return "", 0, m.Err
	}
	return m.Text, m.Conf, nil
}

func (m *MockSTT) Close() error { return nil }

func (m *MockSTT) Transcriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockEmbedder returns a fixed vector; Dims defaults to 768.
type MockEmbedder struct {
	mu sync.Mutex

	Vec  []float32
	Dims int
	Err  error

	Calls int
}

func (m *MockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Vec != nil {
		return m.Vec, nil
	}
	return make([]float32, m.Dimensions()), nil
}

func (m *MockEmbedder) Dimensions() int {
	if m.Dims > 0 {
		return m.Dims
	}
	return 768
}

func (m *MockEmbedder) Close() error { return nil }

// MockObjectStore records uploads and hands back deterministic object names.
type MockObjectStore struct {
	mu sync.Mutex

	PutErr error

	Objects map[string][]byte
	Puts    int
}

func (m *MockObjectStore) Put(_ context.Context, data []byte, folder, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	if m.PutErr != nil {
		return "", m.PutErr
	}
	if m.Objects == nil {
		m.Objects = make(map[string][]byte)
	}
	name := folder + "/obj-" + strconv.Itoa(m.Puts)
	m.Objects[name] = append([]byte(nil), data...)
	return name, nil
}

func (m *MockObjectStore) Get(_ context.Context, objectName string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Objects[objectName], nil
}

// MockPublisher records published topics.
type MockPublisher struct {
	mu     sync.Mutex
	Topics []string
}

func (m *MockPublisher) Publish(_ context.Context, topic string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Topics = append(m.Topics, topic)
}

func (m *MockPublisher) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Topics...)
}
