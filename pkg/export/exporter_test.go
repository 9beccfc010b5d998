package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Offering C1-T1",
		Headers: []string{"Student", "Average", "Outcome"},
		Rows: [][]string{
			{"Ana, M.", "7.88", "Approved"},
			{"João", "4.10"},
		},
		Summary: []string{"Class average: 5.99"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Student,Average,Outcome\n\"Ana, M.\",7.88,Approved\nJoão,4.10,\nClass average: 5.99\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	wide := Dataset{Headers: []string{"a", "b", "c", "d", "e", "f", "g", "h"}}
	for i := 0; i < 80; i++ {
		wide.Rows = append(wide.Rows, []string{"1", "2", "3", "4", "5", "6", "7", "8"})
	}
	out, err = NewPDFExporter().Render(wide)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
