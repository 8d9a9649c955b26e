package prescription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                 `{"a":1}`,
		"  {\"a\":1}\n":           `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		"```json{\"a\":1}```":     `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, extractJSON(in), in)
	}
}

func TestDecodeParsed(t *testing.T) {
	parsed, err := decodeParsed("```json\n" + `{
  "medications": [{"name": "Amoxicillin", "dosage": "250mg", "frequency": "twice daily", "duration": "7 days"}],
  "instructions": "Give after food",
  "raw_text": "Amoxicillin 250mg BD x 7d"
}` + "\n```")
	require.NoError(t, err)
	require.Len(t, parsed.Medications, 1)
	assert.Equal(t, "Amoxicillin", parsed.Medications[0].Name)
	assert.Equal(t, "7 days", parsed.Medications[0].Duration)
	assert.Equal(t, "Give after food", parsed.Instructions)

	_, err = decodeParsed("I could not read this image")
	assert.Error(t, err)
}
