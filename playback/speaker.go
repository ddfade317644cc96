package playback

import "context"

// Speaker starts speech synthesis for a text.
type Speaker interface {
	Speak(ctx context.Context, text string, voice string) (Utterance, error)
}

// Utterance is one in-progress speech.
type Utterance interface {
	Pause() error
	Resume() error
	Cancel() error
	// Done is closed (or yields an error) when speech ends.
	Done() <-chan error
}
