package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/qaindex/internal/domain"
	"github.com/kailas-cloud/qaindex/internal/domain/collection"
	"github.com/kailas-cloud/qaindex/internal/domain/report"
)

func TestFail_WritesErrorObject(t *testing.T) {
	var buf bytes.Buffer
	code := Fail(&buf, domain.WithKind(domain.KindInput, errors.New("dataset missing")))
	assert.Equal(t, 1, code)

	var resp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "dataset missing", resp.Error)
	assert.Equal(t, "InputError", resp.Type)
}

func TestReadRequest(t *testing.T) {
	raw, err := ReadRequest([]string{`{"query":"x"}`}, strings.NewReader(`{"query":"ignored"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"x"}`, string(raw))

	raw, err = ReadRequest(nil, strings.NewReader(`{"action":"stats"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"stats"}`, string(raw))
}

func TestReadRequest_NoParameters(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin io.Reader
	}{
		{"no stdin", nil, nil},
		{"blank stdin", nil, strings.NewReader("  \n")},
		{"blank argument", []string{" "}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadRequest(tc.args, tc.stdin)
			require.ErrorIs(t, err, ErrNoParameters)
			resp := domain.NewErrorResponse(err)
			assert.Equal(t, "No parameters provided", resp.Error)
			assert.Equal(t, "ValidationError", resp.Type)
		})
	}
}

func TestPrintLoadSummary(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	PrintLoadSummary(&buf, report.Load{
		CollectionCount:  2,
		Collection:       "pcaf_motor_vehicle_qa",
		Clear:            collection.Cleared,
		Categories:       []string{"attribution", "data_quality"},
		ConfidenceLevels: []string{"high"},
		Database:         report.Database{Driver: "valkey"},
	})
	out := buf.String()
	assert.Contains(t, out, "loaded 2 documents into pcaf_motor_vehicle_qa (valkey)")
	assert.Contains(t, out, "attribution, data_quality")
}
