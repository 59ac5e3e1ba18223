package provider_test

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arbor-chat/arbor/internal/provider"
	"github.com/arbor-chat/arbor/pkg/types"
)

type fakeProvider struct {
	id     string
	models []types.Model
	chunks []*schema.Message
	err    error
}

func (p *fakeProvider) ID() string            { return p.id }
func (p *fakeProvider) Name() string          { return p.id }
func (p *fakeProvider) Models() []types.Model { return p.models }

func (p *fakeProvider) CreateCompletion(_ context.Context, _ *provider.CompletionRequest) (*provider.CompletionStream, error) {
	if p.err != nil {
		return nil, p.err
	}
	return provider.NewCompletionStream(schema.StreamReaderFromArray(p.chunks)), nil
}

var _ = Describe("Registry", func() {
	var registry *provider.Registry

	BeforeEach(func() {
		registry = provider.NewRegistry()
		registry.Register(&fakeProvider{
			id: "alpha",
			models: []types.Model{
				{ID: "alpha-small", ProviderID: "alpha", MaxOutputTokens: 256},
				{ID: "alpha-large", ProviderID: "alpha", MaxOutputTokens: 4096},
			},
		})
		registry.Register(&fakeProvider{
			id:     "beta",
			models: []types.Model{{ID: "beta-chat", ProviderID: "beta"}},
		})
	})

	Describe("Get", func() {
		It("returns a registered provider", func() {
			p, err := registry.Get("alpha")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID()).To(Equal("alpha"))
		})

		It("fails for an unknown id", func() {
			_, err := registry.Get("gamma")
			Expect(err).To(MatchError(ContainSubstring("provider not found")))
		})
	})

	Describe("Resolve", func() {
		It("finds the provider serving a model", func() {
			p, model, err := registry.Resolve("beta-chat")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID()).To(Equal("beta"))
			Expect(model.ID).To(Equal("beta-chat"))
		})

		It("fails for an unknown model", func() {
			_, _, err := registry.Resolve("ghost")
			Expect(err).To(MatchError(ContainSubstring("model not found")))
		})
	})

	Describe("ResolveRef", func() {
		It("resolves a provider/model reference", func() {
			p, model, err := registry.ResolveRef("alpha/alpha-large")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID()).To(Equal("alpha"))
			Expect(model.MaxOutputTokens).To(Equal(4096))
		})

		It("treats a bare ref as a model id", func() {
			_, model, err := registry.ResolveRef("alpha-small")
			Expect(err).NotTo(HaveOccurred())
			Expect(model.ID).To(Equal("alpha-small"))
		})

		It("falls back to any model when the ref is empty", func() {
			_, model, err := registry.ResolveRef("")
			Expect(err).NotTo(HaveOccurred())
			Expect(model).NotTo(BeNil())
		})

		It("fails when the provider exists but the model does not", func() {
			_, _, err := registry.ResolveRef("alpha/ghost")
			Expect(err).To(MatchError(ContainSubstring("model not found")))
		})

		It("fails on an empty registry", func() {
			_, _, err := provider.NewRegistry().ResolveRef("")
			Expect(err).To(MatchError(ContainSubstring("no providers registered")))
		})
	})

	Describe("AllModels", func() {
		It("lists every model across providers", func() {
			models := registry.AllModels()
			ids := make([]string, 0, len(models))
			for _, m := range models {
				ids = append(ids, m.ID)
			}
			Expect(ids).To(ConsistOf("alpha-small", "alpha-large", "beta-chat"))
		})
	})
})

var _ = Describe("TextDrafter", func() {
	It("concatenates the streamed completion", func() {
		registry := provider.NewRegistry()
		registry.Register(&fakeProvider{
			id:     "alpha",
			models: []types.Model{{ID: "alpha-small", ProviderID: "alpha", MaxOutputTokens: 256}},
			chunks: []*schema.Message{
				{Role: schema.Assistant, Content: "first "},
				{Role: schema.Assistant, Content: "second"},
			},
		})

		drafter := provider.NewTextDrafter(registry, "alpha/alpha-small")
		out, err := drafter.Draft(context.Background(), "system", "prompt")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("first second"))
	})

	It("propagates resolution failures", func() {
		drafter := provider.NewTextDrafter(provider.NewRegistry(), "ghost/model")
		_, err := drafter.Draft(context.Background(), "system", "prompt")
		Expect(err).To(HaveOccurred())
	})

	It("propagates completion failures", func() {
		registry := provider.NewRegistry()
		registry.Register(&fakeProvider{
			id:     "alpha",
			models: []types.Model{{ID: "alpha-small", ProviderID: "alpha"}},
			err:    fmt.Errorf("model offline"),
		})

		drafter := provider.NewTextDrafter(registry, "alpha/alpha-small")
		_, err := drafter.Draft(context.Background(), "system", "prompt")
		Expect(err).To(MatchError(ContainSubstring("model offline")))
	})
})
