package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatCSV, "csv": FormatCSV, " PDF ": FormatPDF}
	for raw, want := range cases {
		got, err := ParseFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xlsx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestCSVRenderPadsRows(t *testing.T) {
	body, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"ID", "Name", "Email"},
		Rows:    [][]string{{"1", "Ada, Admin"}, {"2", "Gus", "gus@example.com", "extra"}},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ID", "Name", "Email"},
		{"1", "Ada, Admin", ""},
		{"2", "Gus", "gus@example.com"},
	}, records)
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestRenderFile(t *testing.T) {
	data := Dataset{Headers: []string{"ID", "Name"}, Rows: [][]string{{"1", "Ada"}}}

	csvFile, err := Render(FormatCSV, "users", "Users", data)
	require.NoError(t, err)
	assert.Equal(t, "users.csv", csvFile.Name)
	assert.Equal(t, "text/csv; charset=utf-8", csvFile.ContentType)

	pdfFile, err := Render(FormatPDF, "users", "Users", data)
	require.NoError(t, err)
	assert.Equal(t, "users.pdf", pdfFile.Name)
	assert.True(t, bytes.HasPrefix(pdfFile.Body, []byte("%PDF")))

	_, err = Render(Format("xml"), "users", "Users", data)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestPDFRenderManyRows(t *testing.T) {
	data := Dataset{Headers: []string{"ID", "Name", "Email", "Role", "Status", "Last Login"}}
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, []string{"1", "A very long name that should be truncated to fit the column", "someone@example.com", "Guest", "Active", ""})
	}
	body, err := NewPDFExporter().Render(data, "User Directory")
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}
