package domain

import "strings"

// GenerationKind enumerates the artifact families a provider can produce.
type GenerationKind string

const (
	KindText  GenerationKind = "text"
	KindImage GenerationKind = "image"
	KindAudio GenerationKind = "audio"
)

// ParseGenerationKind normalizes free-form input into a supported kind.
func ParseGenerationKind(v string) (GenerationKind, error) {
	switch GenerationKind(strings.ToLower(strings.TrimSpace(v))) {
	case KindText:
		return KindText, nil
	case KindImage:
		return KindImage, nil
	case KindAudio:
		return KindAudio, nil
	default:
		return "", ErrUnsupportedKind
	}
}
