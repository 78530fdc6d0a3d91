package session

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/raphaelgruber/docchat/internal/models"
)

// MessageSender posts a user message.
type MessageSender interface {
	SendMessage(ctx context.Context, input models.SendMessageInput) (models.SendResult, error)
}

// Defaults is the model configuration a composer or a new chat starts with.
type Defaults struct {
	Provider    string
	Model       string
	Temperature float64
}

// DefaultModelConfig returns the built-in model configuration.
func DefaultModelConfig() Defaults {
	return Defaults{
		Provider:    models.DefaultProvider,
		Model:       models.DefaultModel,
		Temperature: models.DefaultTemperature,
	}
}

// normalize replaces values outside the catalog with built-in ones.
func (d Defaults) normalize() Defaults {
	if _, ok := models.LookupProvider(d.Provider); !ok {
		return DefaultModelConfig()
	}
	if !models.HasModel(d.Provider, d.Model) {
		d.Model, _ = models.FirstModel(d.Provider)
	}
	d.Temperature = models.ClampTemperature(d.Temperature)
	return d
}

// SendState is the state of the send controller.
type SendState int

const (
	Idle SendState = iota
	Sending
)

func (s SendState) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

// SendRequest is one send attempt.
type SendRequest struct {
	ChatID      string
	Message     string
	Provider    string
	Model       string
	Temperature float64

	// seq identifies the Begin call that produced the request.
	seq uint64
}

// Input converts the request to its wire form.
func (r SendRequest) Input() models.SendMessageInput {
	return models.SendMessageInput{
		ChatID:         r.ChatID,
		Message:        r.Message,
		Stream:         false,
		LLMProvider:    r.Provider,
		LLMModel:       r.Model,
		LLMTemperature: r.Temperature,
	}
}

// Composer owns the draft and the per-message model configuration of one chat
// view, and runs the Idle/Sending state machine. A send clears the draft
// immediately; a failed send puts the exact text back.
type Composer struct {
	mu       sync.Mutex
	defaults Defaults

	draft       string
	state       SendState
	pending     *SendRequest
	seq         uint64
	provider    string
	model       string
	temperature float64
	err         error
}

// NewComposer creates an idle composer using d for its model configuration.
func NewComposer(d Defaults) *Composer {
	c := &Composer{defaults: d.normalize()}
	c.resetLocked()
	return c
}

func (c *Composer) resetLocked() {
	c.draft = ""
	c.state = Idle
	c.pending = nil
	c.provider = c.defaults.Provider
	c.model = c.defaults.Model
	c.temperature = c.defaults.Temperature
	c.err = nil
}

// Reset returns the composer to its initial state for a new chat view.
// A send still in flight is abandoned: its Finish becomes a no-op.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Draft returns the current draft.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the draft. It is ignored while a send is in flight.
func (c *Composer) SetDraft(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Sending {
		return false
	}
	c.draft = s
	return true
}

// CanSend reports whether Begin would accept the current draft.
func (c *Composer) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Idle && strings.TrimSpace(c.draft) != ""
}

// Begin starts a send for chatID. It captures and clears the draft and moves
// to Sending. Rejected attempts return a sentinel error and change nothing.
func (c *Composer) Begin(chatID string) (SendRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == Sending:
		return SendRequest{}, ErrSendInFlight
	case strings.TrimSpace(c.draft) == "":
		return SendRequest{}, ErrEmptyDraft
	case chatID == "":
		return SendRequest{}, ErrNoActiveChat
	}

	req := SendRequest{
		ChatID:      chatID,
		Message:     c.draft,
		Provider:    c.provider,
		Model:       c.model,
		Temperature: c.temperature,
	}
	c.seq++
	req.seq = c.seq
	c.pending = &req
	c.state = Sending
	c.draft = ""
	c.err = nil
	return req, nil
}

// Finish completes the pending send. On failure the captured draft is
// restored verbatim and err is kept for display.
func (c *Composer) Finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishLocked(err)
}

func (c *Composer) finishLocked(err error) {
	if c.pending == nil {
		return
	}
	if err != nil {
		c.draft = c.pending.Message
		c.err = err
	}
	c.pending = nil
	c.state = Idle
}

// Send runs Begin, the request and Finish.
func (c *Composer) Send(ctx context.Context, api MessageSender, chatID string) (models.SendResult, error) {
	req, err := c.Begin(chatID)
	if err != nil {
		return models.SendResult{}, err
	}
	return c.Deliver(ctx, api, req)
}

// Deliver posts a request obtained from Begin and settles it. The outcome is
// dropped if the composer was reset or began another send in the meantime,
// even one with identical content.
func (c *Composer) Deliver(ctx context.Context, api MessageSender, req SendRequest) (models.SendResult, error) {
	res, err := api.SendMessage(ctx, req.Input())

	c.mu.Lock()
	if c.pending != nil && c.pending.seq == req.seq {
		c.finishLocked(err)
	}
	c.mu.Unlock()

	if err != nil {
		return models.SendResult{}, fmt.Errorf("send message: %w", err)
	}
	return res, nil
}

// State returns the send state.
func (c *Composer) State() SendState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last failed send, cleared by the next Begin.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Provider returns the selected provider.
func (c *Composer) Provider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// Model returns the selected model.
func (c *Composer) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Temperature returns the selected temperature.
func (c *Composer) Temperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.temperature
}

// SetProvider selects a provider. Switching to a different provider resets
// the model to that provider's first model.
func (c *Composer) SetProvider(provider string) error {
	first, ok := models.FirstModel(provider)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if provider == c.provider {
		return nil
	}
	c.provider = provider
	c.model = first
	return nil
}

// SetModel selects a model of the current provider.
func (c *Composer) SetModel(model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !models.HasModel(c.provider, model) {
		return fmt.Errorf("%w: %q for %s", ErrUnknownModel, model, c.provider)
	}
	c.model = model
	return nil
}

// SetTemperature sets the temperature, clamped to the allowed range, and
// returns the stored value. The value is not rounded.
func (c *Composer) SetTemperature(t float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temperature = models.ClampTemperature(t)
	return c.temperature
}

// StepTemperature moves the temperature by steps of TemperatureStep,
// snapping to the step grid.
func (c *Composer) StepTemperature(steps int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temperature = stepTemperature(c.temperature, steps)
	return c.temperature
}

func stepTemperature(t float64, steps int) float64 {
	grid := 1 / models.TemperatureStep
	next := math.Round((t+float64(steps)*models.TemperatureStep)*grid) / grid
	return models.ClampTemperature(next)
}

// CycleProvider selects the next provider in catalog order.
func (c *Composer) CycleProvider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = nextProvider(c.provider)
	c.model, _ = models.FirstModel(c.provider)
	return c.provider
}

// CycleModel selects the next model of the current provider.
func (c *Composer) CycleModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = nextModel(c.provider, c.model)
	return c.model
}

func nextProvider(current string) string {
	values := models.ProviderValues()
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func nextModel(provider, current string) string {
	p, ok := models.LookupProvider(provider)
	if !ok || len(p.Models) == 0 {
		return current
	}
	for i, m := range p.Models {
		if m.Value == current {
			return p.Models[(i+1)%len(p.Models)].Value
		}
	}
	return p.Models[0].Value
}
