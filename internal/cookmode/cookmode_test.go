package cookmode

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"balanced-bowl/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSpeaker struct {
	texts []string
}

func (m *mockSpeaker) Speak(ctx context.Context, text string) []byte {
	m.texts = append(m.texts, text)
	return []byte(text)
}

func threeSteps() recipe.Recipe {
	return recipe.Recipe{
		ID:    7,
		Title: "Omelette",
		AnalyzedInstructions: []recipe.AnalyzedInstruction{{Steps: []recipe.Step{
			{Number: 1, Step: "Whisk the eggs."},
			{Number: 2, Step: "Heat the pan."},
			{Number: 3, Step: "Cook until set."},
		}}},
	}
}

func TestNewSessionNoInstructions(t *testing.T) {
	_, err := NewSession(recipe.Recipe{ID: 1})
	assert.True(t, errors.Is(err, ErrNoInstructions))

	_, err = NewSession(recipe.Recipe{AnalyzedInstructions: []recipe.AnalyzedInstruction{{Name: "empty"}}})
	assert.True(t, errors.Is(err, ErrNoInstructions))
}

func TestNavigation(t *testing.T) {
	s, err := NewSession(threeSteps())
	require.NoError(t, err)

	assert.Equal(t, 0, s.Index())
	assert.Equal(t, "STEP 1 OF 3", s.Label())
	assert.False(t, s.HasPrev())
	assert.False(t, s.Prev())

	assert.True(t, s.Next())
	assert.True(t, s.Next())
	assert.Equal(t, "Cook until set.", s.Current().Step)
	assert.InDelta(t, 100.0, s.Progress(), 1e-9)
	assert.False(t, s.HasNext())
	assert.False(t, s.Next())
	assert.Equal(t, 2, s.Index())

	assert.True(t, s.Prev())
	assert.Equal(t, "STEP 2 OF 3", s.Label())
	assert.InDelta(t, 66.666, s.Progress(), 0.01)

	assert.False(t, s.Goto(3))
	assert.False(t, s.Goto(-1))
	assert.True(t, s.Goto(0))
	assert.Equal(t, "Whisk the eggs.", s.Current().Step)
}

func TestNarrate(t *testing.T) {
	s, err := NewSession(threeSteps())
	require.NoError(t, err)
	speaker := &mockSpeaker{}

	assert.True(t, s.VoiceOn())
	assert.Equal(t, []byte("Whisk the eggs."), s.Narrate(context.Background(), speaker))

	assert.False(t, s.ToggleVoice())
	s.Next()
	assert.Nil(t, s.Narrate(context.Background(), speaker))
	assert.Len(t, speaker.texts, 1)

	s.SetVoice(true)
	s.Narrate(context.Background(), speaker)
	assert.Equal(t, []string{"Whisk the eggs.", "Heat the pan."}, speaker.texts)
}

func TestWAV(t *testing.T) {
	pcm := []byte{0x10, 0x00, 0xf0, 0xff}
	wav := WAV(pcm, 24000, 1)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}
