// Package cookmode walks a cook through a recipe one step at a time.
package cookmode

import (
	"context"
	"errors"
	"fmt"

	"balanced-bowl/internal/recipe"
)

// ErrNoInstructions is returned for recipes without step-by-step instructions.
var ErrNoInstructions = errors.New("no instructions available for this recipe")

// Speaker turns text into PCM audio. It returns nil when no audio could be produced.
type Speaker interface {
	Speak(ctx context.Context, text string) []byte
}

// Session tracks the current step of a recipe and whether steps are narrated.
type Session struct {
	RecipeID int64
	Title    string
	Steps    []recipe.Step

	index   int
	voiceOn bool
}

// NewSession starts at the first step of rec's first instruction block, with voice on.
func NewSession(rec recipe.Recipe) (*Session, error) {
	steps := rec.Steps()
	if len(steps) == 0 {
		return nil, ErrNoInstructions
	}
	return &Session{RecipeID: rec.ID, Title: rec.Title, Steps: steps, voiceOn: true}, nil
}

// Index is the zero-based current step.
func (s *Session) Index() int { return s.index }

// Len is the number of steps.
func (s *Session) Len() int { return len(s.Steps) }

// Current returns the current step.
func (s *Session) Current() recipe.Step { return s.Steps[s.index] }

// Next advances one step. It reports false, and stays put, on the last step.
func (s *Session) Next() bool {
	if s.index >= len(s.Steps)-1 {
		return false
	}
	s.index++
	return true
}

// Prev goes back one step. It reports false, and stays put, on the first step.
func (s *Session) Prev() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

// Goto jumps to step i, reporting false when i is out of range.
func (s *Session) Goto(i int) bool {
	if i < 0 || i >= len(s.Steps) {
		return false
	}
	s.index = i
	return true
}

// HasNext reports whether there is a step after the current one.
func (s *Session) HasNext() bool { return s.index < len(s.Steps)-1 }

// HasPrev reports whether there is a step before the current one.
func (s *Session) HasPrev() bool { return s.index > 0 }

// Progress is the share of steps reached, as a percentage.
func (s *Session) Progress() float64 {
	return float64(s.index+1) / float64(len(s.Steps)) * 100
}

// Label is the "STEP n OF m" heading.
func (s *Session) Label() string {
	return fmt.Sprintf("STEP %d OF %d", s.index+1, len(s.Steps))
}

// VoiceOn reports whether steps are narrated.
func (s *Session) VoiceOn() bool { return s.voiceOn }

// SetVoice turns narration on or off.
func (s *Session) SetVoice(on bool) { s.voiceOn = on }

// ToggleVoice flips narration and returns the new setting.
func (s *Session) ToggleVoice() bool {
	s.voiceOn = !s.voiceOn
	return s.voiceOn
}

// Narrate speaks the current step when voice is on.
func (s *Session) Narrate(ctx context.Context, speaker Speaker) []byte {
	if !s.voiceOn || speaker == nil {
		return nil
	}
	return speaker.Speak(ctx, s.Current().Step)
}
