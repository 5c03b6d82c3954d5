package labels

import (
	"time"

	"github.com/wadansyaku/band-part-key-app/model"
)

// Config controls where labels are searched for and how they are scored.
type Config struct {
	// StripFraction is the share of the page width, from the left edge,
	// searched for labels.
	StripFraction float64 `yaml:"strip_fraction"`
	// MaxTokenRunes rejects longer text as lyrics or body text.
	MaxTokenRunes int `yaml:"max_token_runes"`

	NativeConfidence float64 `yaml:"native_confidence"`
	OCRConfidence    float64 `yaml:"ocr_confidence"`
	ExactBonus       float64 `yaml:"exact_bonus"`

	// UpscaleBelowPx enlarges narrower strips before recognition.
	UpscaleBelowPx int `yaml:"upscale_below_px"`
	// MaxUpscale caps the enlargement factor.
	MaxUpscale float64 `yaml:"max_upscale"`
	// BinarizeThreshold separates ink from paper in the strip.
	BinarizeThreshold uint8 `yaml:"binarize_threshold"`
	// RecognitionTimeout bounds one engine call.
	RecognitionTimeout time.Duration `yaml:"recognition_timeout"`

	// Vocabulary lists the spellings of each instrument. Order inside a
	// list does not matter.
	Vocabulary map[model.Instrument][]string `yaml:"vocabulary"`
}

// DefaultConfig returns the label settings for Western and Japanese band
// scores.
func DefaultConfig() Config {
	return Config{
		StripFraction:      0.25,
		MaxTokenRunes:      30,
		NativeConfidence:   0.9,
		OCRConfidence:      0.7,
		ExactBonus:         0.1,
		UpscaleBelowPx:     600,
		MaxUpscale:         4,
		BinarizeThreshold:  160,
		RecognitionTimeout: 10 * time.Second,
		Vocabulary:         DefaultVocabulary(),
	}
}

// DefaultVocabulary returns the built-in instrument spellings.
func DefaultVocabulary() map[model.Instrument][]string {
	return map[model.Instrument][]string{
		model.Vocal: {
			"Vocal", "Vo.", "Vo", "Voice", "Melody", "Chorus", "Cho.", "Lead", "Sing",
			"ボーカル", "ヴォーカル", "メロディ", "歌",
		},
		model.Keyboard: {
			"Keyboard", "Key.", "Key", "Keyb.", "Kb.", "Piano", "Pf.", "Synth", "Organ", "Keys",
			"キーボード", "ピアノ", "シンセ", "鍵盤",
		},
		model.Guitar: {
			"Guitar", "Gt.", "Gtr.", "E.G.", "A.G.", "ギター",
		},
		model.Bass: {
			"Bass", "Ba.", "Bs.", "E.B.", "ベース",
		},
		model.Drums: {
			"Drums", "Drum", "Dr.", "Drs.", "Percussion", "Perc.", "ドラム",
		},
	}
}
