package model

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

func validRecord() *ArtifactRecord {
	return &ArtifactRecord{
		Version:        RecordVersion,
		Weight:         0.83,
		Bias:           0.02,
		ScalingFeature: ScalingRecord{Min: 290, Max: 13540},
		ScalingLabel:   ScalingRecord{Min: 75000, Max: 7700000},
		SavedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeDecodeRecord(t *testing.T) {
	rec := validRecord()

	var buf bytes.Buffer
	require.NoError(t, EncodeRecord(&buf, rec))
	assert.Contains(t, buf.String(), `"scalingFeature":{"min":290,"max":13540}`)
	assert.Contains(t, buf.String(), `"savedAt":"2024-05-01T12:00:00Z"`)

	got, err := DecodeRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec.Weight, got.Weight)
	assert.Equal(t, rec.Bias, got.Bias)
	assert.Equal(t, rec.ScalingFeature, got.ScalingFeature)
	assert.Equal(t, rec.ScalingLabel, got.ScalingLabel)
	assert.True(t, rec.SavedAt.Equal(got.SavedAt))
}

func TestDecodeRecord_Corruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecord(&buf, validRecord()))
	data := buf.Bytes()

	tests := []struct {
		name string
		data []byte
		kind string
	}{
		{name: "flipped payload byte", data: flip(data, 5), kind: "checksum mismatch"},
		{name: "flipped checksum byte", data: flip(data, len(data)-1), kind: "checksum mismatch"},
		{name: "truncated", data: data[:4], kind: "truncated record"},
		{name: "empty", data: nil, kind: "truncated record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord(bytes.NewReader(tt.data))
			require.Error(t, err)
			var modelErr *errors.ModelError
			require.True(t, errors.As(err, &modelErr))
			assert.Equal(t, tt.kind, modelErr.Kind)
		})
	}
}

func TestUnmarshalRecord_InvalidContent(t *testing.T) {
	payload := []byte(`{"version":"1","weight":1,"bias":0,"scalingFeature":{"min":5,"max":5},"scalingLabel":{"min":0,"max":1},"savedAt":"2024-05-01T12:00:00Z"}`)
	_, err := UnmarshalRecord(payload, Checksum(payload))
	require.Error(t, err)
	var modelErr *errors.ModelError
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, "invalid record", modelErr.Kind)

	garbage := []byte("not json")
	_, err = UnmarshalRecord(garbage, Checksum(garbage))
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, "decode failed", modelErr.Kind)
}

func TestArtifactRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ArtifactRecord)
	}{
		{name: "wrong version", mutate: func(r *ArtifactRecord) { r.Version = "0" }},
		{name: "nan weight", mutate: func(r *ArtifactRecord) { r.Weight = math.NaN() }},
		{name: "infinite bias", mutate: func(r *ArtifactRecord) { r.Bias = math.Inf(1) }},
		{name: "degenerate feature range", mutate: func(r *ArtifactRecord) { r.ScalingFeature.Max = r.ScalingFeature.Min }},
		{name: "inverted label range", mutate: func(r *ArtifactRecord) { r.ScalingLabel.Min, r.ScalingLabel.Max = 1, 0 }},
		{name: "missing savedAt", mutate: func(r *ArtifactRecord) { r.SavedAt = time.Time{} }},
	}

	require.NoError(t, validRecord().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)
			assert.Error(t, r.Validate())

			_, _, err := MarshalRecord(r)
			assert.Error(t, err, "an invalid record must not be encoded")
		})
	}
}

func flip(data []byte, i int) []byte {
	out := append([]byte(nil), data...)
	out[i] ^= 0xff
	return out
}
