package providers

import (
	"fmt"
	"strings"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

// Manager holds the configured completion providers and routes requests to
// them by model prefix ("groq/llama-3.1-8b-instant" goes to the groq provider).
type Manager struct {
	llmProviders []NamedLLMProvider
}

func NewManager(providerList string) (*Manager, error) {
	refs := ParseProviderList(providerList)
	m := &Manager{}
	for _, ref := range refs {
		p, err := buildProvider(ref)
		if err != nil {
			return nil, err
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: p})
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()}}
	}
	return m, nil
}

// ProviderForModel returns the provider responsible for a model identifier.
// A "name/" prefix selects the matching configured provider; otherwise the
// first configured provider handles the call.
func (m *Manager) ProviderForModel(model string) (LLMProvider, ProviderRef) {
	if i := strings.Index(model, "/"); i > 0 {
		prefix := strings.ToLower(model[:i])
		for _, np := range m.llmProviders {
			if strings.ToLower(np.Ref.Name) == prefix {
				return np.Provider, np.Ref
			}
		}
	}
	return m.llmProviders[0].Provider, m.llmProviders[0].Ref
}

func (m *Manager) Count() int {
	return len(m.llmProviders)
}

func buildProvider(ref ProviderRef) (LLMProvider, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
