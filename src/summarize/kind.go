// Package summarize turns long content into summaries through a map-reduce
// pipeline over a fallback chain of language models.
package summarize

import "errors"

// Kind identifies what sort of content is being summarized; each kind gets
// its own system prompt.
type Kind int

const (
	KindChat Kind = iota
	KindDocument
	KindAudioTranscript
	KindVideoTranscript
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindDocument:
		return "document"
	case KindAudioTranscript:
		return "audio_transcript"
	case KindVideoTranscript:
		return "video_transcript"
	default:
		return "unknown"
	}
}

func (k Kind) valid() bool {
	return k >= KindChat && k <= KindVideoTranscript
}

var (
	// ErrUnsupportedKind means the caller asked for a content kind the
	// engine has no prompt for.
	ErrUnsupportedKind = errors.New("unsupported content kind")

	// ErrEmptyInput means there was nothing to summarize.
	ErrEmptyInput = errors.New("empty input")

	// ErrUpstream wraps model-side failures, including chain exhaustion.
	ErrUpstream = errors.New("upstream model failure")
)
