package providers

// NewStaticManager wires pre-built providers directly, bypassing the provider
// list parser. Used by embedders and tests that supply their own providers.
func NewStaticManager(named ...NamedLLMProvider) *Manager {
	if len(named) == 0 {
		named = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider()}}
	}
	return &Manager{llmProviders: named}
}
