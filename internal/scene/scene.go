package scene

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies which interactive scene a session is currently showing.
type Kind string

const (
	KindSlides      Kind = "slides"
	KindQuiz        Kind = "quiz"
	KindVote        Kind = "vote"
	KindThisOrThat  Kind = "this_or_that"
	KindWordCloud   Kind = "word_cloud"
	KindPersonality Kind = "personality"
	KindBingo       Kind = "bingo"
	KindLadder      Kind = "ladder"
	KindBalanceGame Kind = "balance_game"
)

var knownKinds = map[Kind]bool{
	KindSlides:      true,
	KindQuiz:        true,
	KindVote:        true,
	KindThisOrThat:  true,
	KindWordCloud:   true,
	KindPersonality: true,
	KindBingo:       true,
	KindLadder:      true,
	KindBalanceGame: true,
}

var (
	ErrUnknownKind   = errors.New("unknown scene kind")
	ErrNegativeIndex = errors.New("scene index must not be negative")
)

// Scene is the single authoritative value describing what every participant
// should be looking at. Exactly one Scene exists per session; it is replaced
// wholesale on every host transition, never merged.
type Scene struct {
	Kind              Kind   `json:"kind"`
	ItemIndex         int    `json:"item_index"`
	SlideIndex        int    `json:"slide_index,omitempty"`
	LinkedSessionCode string `json:"linked_session_code,omitempty"`
}

// Default is the scene every session starts on.
func Default() Scene {
	return Scene{Kind: KindSlides, ItemIndex: 0, SlideIndex: 0}
}

func (s Scene) Validate() error {
	if !knownKinds[s.Kind] {
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	if s.ItemIndex < 0 || s.SlideIndex < 0 {
		return ErrNegativeIndex
	}
	if s.Kind != KindSlides && s.SlideIndex != 0 {
		return fmt.Errorf("slide_index is only valid for %s scenes", KindSlides)
	}
	if s.Kind == KindSlides && s.LinkedSessionCode != "" {
		return fmt.Errorf("linked_session_code is not valid for %s scenes", KindSlides)
	}
	return nil
}

func (s Scene) Encode() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Decode parses and validates a scene payload. Malformed payloads are
// reported as errors, never applied.
func Decode(b []byte) (Scene, error) {
	var s Scene
	if err := json.Unmarshal(b, &s); err != nil {
		return Scene{}, fmt.Errorf("decode scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}
