package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tutor/internal/compiler"
	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/pkg/adapters/memory"
	contract "github.com/aretw0/tutor/pkg/ports/tests"
)

func TestInMemoryLoader_Contract(t *testing.T) {
	data := map[string]string{
		"IntroducingVariables": "id: IntroducingVariables\nsteps:\n  - {id: word_assign, program: \"word = 'Hello'\"}",
		"UsingVariables":       `{"id": "UsingVariables", "steps": [{"id": "hello_plus_name", "program": "'Hello ' + name"}]}`,
	}

	// The contract compares raw bytes.
	bytesData := make(map[string][]byte)
	for k, v := range data {
		bytesData[k] = []byte(v)
	}

	loader := memory.NewLoader(data)

	contract.PageLoaderContractTest(t, loader, bytesData)
}

func TestNewFromPages(t *testing.T) {
	loader, err := memory.NewFromPages(dto.PageMetadata{
		ID: "p",
		Steps: []dto.StepMetadata{
			{ID: "s", Program: "x = 1", Statement: map[string]any{"kind": "Assign"}, Strategy: "verbatim"},
		},
	})
	require.NoError(t, err)

	raw, err := loader.GetPage("p")
	require.NoError(t, err)
	page, err := compiler.NewParser().Parse(raw)
	require.NoError(t, err)
	assert.NotNil(t, page.Steps[0].Shape)

	_, err = memory.NewFromPages(dto.PageMetadata{})
	assert.Error(t, err)
}
