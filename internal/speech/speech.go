package speech

import (
	"context"
)

// Language tags accepted by the synthesis API.
const (
	LangJapanese = "japanese"
	LangEnglish  = "english"
)

// Transcriber converts recorded audio to text. An empty transcript means the
// speech could not be understood.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts text to spoken audio (MP3).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
	SynthesizeBoth(ctx context.Context, japaneseText, englishText string) (ja []byte, en []byte, err error)
}
