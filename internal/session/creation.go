package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/raphaelgruber/docchat/internal/models"
)

// ChatCreator creates chats.
type ChatCreator interface {
	CreateChat(ctx context.Context, input models.CreateChatInput) (models.Chat, error)
}

// DraftConfig is the configuration of a chat that does not exist yet.
type DraftConfig struct {
	SystemPrompt string
	Personality  string
	Provider     string
	Model        string
	Temperature  float64
	// Selected holds the ids of the documents the chat will be bound to.
	Selected map[string]bool
}

// CreationRequest is one submission of a draft, obtained from Begin and
// settled by Finish.
type CreationRequest struct {
	Input models.CreateChatInput
	seq   uint64
}

// CreationFlow drives the "new chat" dialog: it holds a DraftConfig while
// open, submits it once, and on success closes and marks the registry stale
// so the new chat shows up after the next refresh.
type CreationFlow struct {
	registry *Registry
	defaults Defaults

	mu       sync.Mutex
	open     bool
	docs     []models.Document
	draft    DraftConfig
	creating bool
	seq      uint64
	err      error
}

// NewCreationFlow creates a closed flow. registry may be nil.
func NewCreationFlow(registry *Registry, d Defaults) *CreationFlow {
	return &CreationFlow{registry: registry, defaults: d.normalize()}
}

// Open starts a new draft with every document in docs selected. A submission
// still in flight from an earlier draft is abandoned: its Finish only marks
// the registry stale.
func (f *CreationFlow) Open(docs []models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()

	selected := make(map[string]bool, len(docs))
	for _, d := range docs {
		selected[d.ID] = true
	}
	f.docs = append([]models.Document(nil), docs...)
	f.draft = DraftConfig{
		SystemPrompt: models.RolePresets[0].Prompt,
		Personality:  models.DefaultPersonality,
		Provider:     f.defaults.Provider,
		Model:        f.defaults.Model,
		Temperature:  f.defaults.Temperature,
		Selected:     selected,
	}
	f.open = true
	f.creating = false
	f.seq++
	f.err = nil
}

// Close discards the draft. A submission in flight still completes.
func (f *CreationFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.err = nil
}

// IsOpen reports whether a draft is being edited.
func (f *CreationFlow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Creating reports whether a submission is in flight.
func (f *CreationFlow) Creating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creating
}

// Err returns the error of the last failed submission.
func (f *CreationFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Draft returns a copy of the draft.
func (f *CreationFlow) Draft() DraftConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := f.draft
	d.Selected = make(map[string]bool, len(f.draft.Selected))
	for id, ok := range f.draft.Selected {
		d.Selected[id] = ok
	}
	return d
}

// Documents returns the documents offered for selection.
func (f *CreationFlow) Documents() []models.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Document(nil), f.docs...)
}

// SelectedIDs returns the selected document ids in document order.
func (f *CreationFlow) SelectedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selectedIDsLocked()
}

func (f *CreationFlow) selectedIDsLocked() []string {
	ids := make([]string, 0, len(f.draft.Selected))
	for _, d := range f.docs {
		if f.draft.Selected[d.ID] {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// SelectedCount returns the number of selected documents.
func (f *CreationFlow) SelectedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.selectedIDsLocked())
}

// SubmitLabel returns the text of the submit action.
func (f *CreationFlow) SubmitLabel() string {
	n := f.SelectedCount()
	if n == 1 {
		return "Create Chat with 1 Document"
	}
	return fmt.Sprintf("Create Chat with %d Documents", n)
}

// ToggleDocument flips the selection of a document and returns the new state.
// Unknown ids are ignored.
func (f *CreationFlow) ToggleDocument(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.docs {
		if d.ID == id {
			if f.draft.Selected == nil {
				f.draft.Selected = make(map[string]bool)
			}
			f.draft.Selected[id] = !f.draft.Selected[id]
			return f.draft.Selected[id]
		}
	}
	return false
}

// SelectAllDocuments selects every offered document.
func (f *CreationFlow) SelectAllDocuments() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.draft.Selected = make(map[string]bool, len(f.docs))
	for _, d := range f.docs {
		f.draft.Selected[d.ID] = true
	}
}

// ClearSelection deselects every document.
func (f *CreationFlow) ClearSelection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Selected = make(map[string]bool)
}

// SetPreset uses the prompt of models.RolePresets[i] as system prompt.
func (f *CreationFlow) SetPreset(i int) error {
	if i < 0 || i >= len(models.RolePresets) {
		return fmt.Errorf("role preset %d out of range", i)
	}
	f.SetSystemPrompt(models.RolePresets[i].Prompt)
	return nil
}

// SetSystemPrompt sets a free-form system prompt.
func (f *CreationFlow) SetSystemPrompt(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.SystemPrompt = prompt
}

// SetPersonality selects a personality preset. An empty value clears it.
func (f *CreationFlow) SetPersonality(p string) error {
	if p != "" && !knownPersonality(p) {
		return fmt.Errorf("%w: %q", ErrUnknownPersonality, p)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Personality = p
	return nil
}

func knownPersonality(p string) bool {
	for _, known := range models.Personalities {
		if known.Value == p {
			return true
		}
	}
	return false
}

// SetProvider selects a provider. Switching to a different provider resets
// the model to that provider's first model.
func (f *CreationFlow) SetProvider(provider string) error {
	first, ok := models.FirstModel(provider)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if provider == f.draft.Provider {
		return nil
	}
	f.draft.Provider = provider
	f.draft.Model = first
	return nil
}

// SetModel selects a model of the draft's provider.
func (f *CreationFlow) SetModel(model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !models.HasModel(f.draft.Provider, model) {
		return fmt.Errorf("%w: %q for %s", ErrUnknownModel, model, f.draft.Provider)
	}
	f.draft.Model = model
	return nil
}

// SetTemperature sets the temperature, clamped but not rounded.
func (f *CreationFlow) SetTemperature(t float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Temperature = models.ClampTemperature(t)
	return f.draft.Temperature
}

// StepTemperature moves the temperature by steps of TemperatureStep.
func (f *CreationFlow) StepTemperature(steps int) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Temperature = stepTemperature(f.draft.Temperature, steps)
	return f.draft.Temperature
}

// CycleProvider selects the next provider in catalog order.
func (f *CreationFlow) CycleProvider() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Provider = nextProvider(f.draft.Provider)
	f.draft.Model, _ = models.FirstModel(f.draft.Provider)
	return f.draft.Provider
}

// CycleModel selects the next model of the draft's provider.
func (f *CreationFlow) CycleModel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Model = nextModel(f.draft.Provider, f.draft.Model)
	return f.draft.Model
}

// CyclePersonality selects the next personality preset.
func (f *CreationFlow) CyclePersonality() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := models.Personalities[0].Value
	for i, p := range models.Personalities {
		if p.Value == f.draft.Personality {
			next = models.Personalities[(i+1)%len(models.Personalities)].Value
			break
		}
	}
	f.draft.Personality = next
	return next
}

// CanSubmit reports whether the draft can be submitted.
func (f *CreationFlow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open && !f.creating && len(f.selectedIDsLocked()) > 0
}

// Begin starts a submission and returns its request.
func (f *CreationFlow) Begin() (CreationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case !f.open:
		return CreationRequest{}, ErrCreationClosed
	case f.creating:
		return CreationRequest{}, ErrCreateInFlight
	}
	ids := f.selectedIDsLocked()
	if len(ids) == 0 {
		return CreationRequest{}, ErrNoDocumentsSelected
	}

	var personality *string
	if f.draft.Personality != "" {
		p := f.draft.Personality
		personality = &p
	}
	f.creating = true
	f.seq++
	f.err = nil
	return CreationRequest{
		Input: models.CreateChatInput{
			SystemPrompt:   f.draft.SystemPrompt,
			Personality:    personality,
			DocumentIDs:    ids,
			LLMProvider:    f.draft.Provider,
			LLMModel:       f.draft.Model,
			LLMTemperature: f.draft.Temperature,
		},
		seq: f.seq,
	}, nil
}

// Finish completes the submission. On success the flow closes, the registry
// is marked stale and the new chat id is returned for navigation. On failure
// the draft stays open and intact. A request abandoned by a later Open
// leaves the current draft alone and returns ErrCreationAbandoned.
func (f *CreationFlow) Finish(req CreationRequest, chat models.Chat, err error) (string, error) {
	f.mu.Lock()
	if req.seq != f.seq {
		f.mu.Unlock()
		if err == nil && f.registry != nil {
			f.registry.MarkStale()
		}
		return "", ErrCreationAbandoned
	}
	if !f.creating {
		f.mu.Unlock()
		return "", ErrCreationClosed
	}
	f.creating = false
	if err != nil {
		f.err = err
		f.mu.Unlock()
		return "", err
	}
	f.open = false
	f.err = nil
	f.mu.Unlock()

	if f.registry != nil {
		f.registry.MarkStale()
	}
	return chat.ID, nil
}

// Submit runs Begin, the request and Finish.
func (f *CreationFlow) Submit(ctx context.Context, api ChatCreator) (models.Chat, error) {
	req, err := f.Begin()
	if err != nil {
		return models.Chat{}, err
	}
	chat, err := api.CreateChat(ctx, req.Input)
	if _, ferr := f.Finish(req, chat, err); ferr != nil {
		return models.Chat{}, fmt.Errorf("create chat: %w", ferr)
	}
	return chat, nil
}
