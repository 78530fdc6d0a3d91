package session

import "errors"

// Sentinel errors for rejected controller actions.
// Use errors.Is() to check for these errors in calling code. A controller that
// returns one of them has not changed any state.
var (
	// ErrEmptyDraft indicates a send was attempted with a blank draft.
	ErrEmptyDraft = errors.New("message is empty")

	// ErrSendInFlight indicates a send was attempted while another is pending.
	// Duplicate sends are dropped, not queued.
	ErrSendInFlight = errors.New("a message is already being sent")

	// ErrNoActiveChat indicates a send was attempted without an active chat.
	ErrNoActiveChat = errors.New("no active chat")

	// ErrNoDocumentsSelected indicates chat creation without any selected document.
	ErrNoDocumentsSelected = errors.New("select at least one document")

	// ErrCreateInFlight indicates chat creation while another creation is pending.
	ErrCreateInFlight = errors.New("a chat is already being created")

	// ErrCreationClosed indicates a creation action while the creation flow is closed.
	ErrCreationClosed = errors.New("chat creation is not open")

	// ErrCreationAbandoned indicates a submission settled after its draft was
	// replaced by a newly opened one.
	ErrCreationAbandoned = errors.New("chat creation was abandoned")

	// ErrUnknownProvider indicates a provider outside the catalog.
	ErrUnknownProvider = errors.New("unknown LLM provider")

	// ErrUnknownModel indicates a model not offered by the selected provider.
	ErrUnknownModel = errors.New("model not offered by provider")

	// ErrUnknownPersonality indicates a personality outside the presets.
	ErrUnknownPersonality = errors.New("unknown personality")

	// ErrUnsupportedFileType indicates an upload with an extension the backend does not ingest.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)
