package assets_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"covertype/internal/assets"
	"covertype/internal/assets/assetstest"
	"covertype/internal/features"
	"covertype/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadOptions() assets.Options {
	return assets.Options{LabelColumn: assetstest.LabelColumn, Prefixes: assetstest.Prefixes}
}

func TestLoad(t *testing.T) {
	a := assetstest.Load(t, assetstest.Options{})

	assert.Equal(t, assetstest.FeatureNames, a.Schema.Names())
	assert.Equal(t, 2, a.Reference.Rows)
	assert.InDelta(t, assetstest.Means["Elevation"], a.Reference.Means["Elevation"], 1e-9)
	assert.InDelta(t, assetstest.Means["Slope"], a.Reference.Means["Slope"], 1e-9)
	assert.NotContains(t, a.Schema.Names(), assetstest.LabelColumn)
	assert.True(t, a.SupportsProbabilities())
	assert.Equal(t, assetstest.Labels, a.Encoder.Classes())

	p := a.Schema.Partition()
	assert.Equal(t, []string{"Elevation", "Slope"}, p.Numeric)
	assert.Equal(t, []string{"Wilderness_Area_A", "Wilderness_Area_B"}, p.Wilderness)
	assert.Equal(t, []string{"Soil_Type_X", "Soil_Type_Y"}, p.Soil)

	require.Len(t, a.Form.Numeric, 2)
	assert.Equal(t, "2900.5000", a.Form.Numeric[0].Display())
	assert.Equal(t, "Wilderness_Area_A", a.Form.Wilderness.Default())
	assert.Equal(t, "Soil_Type_X", a.Form.Soil.Default())
}

func TestLoad_PipelineRoundTrip(t *testing.T) {
	a := assetstest.Load(t, assetstest.Options{})
	pipeline, err := a.NewPipeline(3, nil)
	require.NoError(t, err)

	cases := []struct {
		wilderness, soil, label string
	}{
		{"Wilderness_Area_A", "Soil_Type_X", "Spruce/Fir"},
		{"Wilderness_Area_B", "Soil_Type_X", "Lodgepole Pine"},
		{"Wilderness_Area_A", "Soil_Type_Y", "Ponderosa Pine"},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			vec, err := a.Form.Assemble(features.Input{Wilderness: tc.wilderness, Soil: tc.soil})
			require.NoError(t, err)

			out := pipeline.Run(context.Background(), vec.Values())
			require.True(t, out.OK(), "unexpected failure: %v", out.Err)
			assert.Equal(t, tc.label, out.Prediction.Label)
			require.Len(t, out.Prediction.Top, 3)
			assert.Equal(t, tc.label, out.Prediction.Top[0].Label)
		})
	}
}

func TestLoad_NoProbabilities(t *testing.T) {
	a := assetstest.Load(t, assetstest.Options{NoProbabilities: true})
	assert.False(t, a.SupportsProbabilities())

	pipeline, err := a.NewPipeline(3, nil)
	require.NoError(t, err)
	vec, err := a.Form.Assemble(a.Form.DefaultInput())
	require.NoError(t, err)

	out := pipeline.Run(context.Background(), vec.Values())
	require.True(t, out.OK())
	assert.Equal(t, "Spruce/Fir", out.Prediction.Label)
	assert.False(t, out.Prediction.HasProbabilities())
}

func TestLoad_MissingFiles(t *testing.T) {
	for _, file := range []string{"model.json", "scaler.json", "label_encoder.json", "cover_type.csv"} {
		t.Run(file, func(t *testing.T) {
			dir := t.TempDir()
			paths := assetstest.Write(t, dir, assetstest.Options{})
			require.NoError(t, os.Remove(filepath.Join(dir, file)))

			a, err := assets.Load(paths, loadOptions())
			assert.Nil(t, a)
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestLoad_ScalerOrderMismatch(t *testing.T) {
	names := append([]string(nil), assetstest.FeatureNames...)
	names[0], names[1] = names[1], names[0]
	paths := assetstest.Write(t, t.TempDir(), assetstest.Options{ScalerNames: names})

	_, err := assets.Load(paths, loadOptions())
	assert.ErrorIs(t, err, ml.ErrDimensionMismatch)
}

func TestLoad_ScalerWidthMismatch(t *testing.T) {
	paths := assetstest.Write(t, t.TempDir(), assetstest.Options{ScalerNames: assetstest.FeatureNames[:4]})

	_, err := assets.Load(paths, loadOptions())
	assert.ErrorIs(t, err, ml.ErrDimensionMismatch)
}

func TestLoad_UndecodableClass(t *testing.T) {
	dir := t.TempDir()
	paths := assetstest.Write(t, dir, assetstest.Options{})
	assetstest.WriteJSON(t, paths.Encoder, map[string]any{"classes": []string{"Spruce/Fir", "Lodgepole Pine"}})

	_, err := assets.Load(paths, loadOptions())
	assert.ErrorIs(t, err, ml.ErrUnknownClass)
}

func TestLoad_WrongLabelColumn(t *testing.T) {
	paths := assetstest.Write(t, t.TempDir(), assetstest.Options{})
	opts := loadOptions()
	opts.LabelColumn = "Class"

	_, err := assets.Load(paths, opts)
	assert.ErrorContains(t, err, `label column "Class" not found`)
}

func TestReadReference(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "empty file", content: "", wantErr: "reference dataset is empty"},
		{name: "header only", content: "A,Cover_Type\n", wantErr: "no rows"},
		{name: "label only", content: "Cover_Type\n1\n", wantErr: "no feature columns"},
		{name: "non numeric cell", content: "A,Cover_Type\nx,1\n", wantErr: "row 2 column A"},
		{name: "ragged row", content: "A,Cover_Type\n1,1,1\n", wantErr: "read row 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ref.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := assets.ReadReference(path, "Cover_Type")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestReadReference_LabelAnywhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.csv")
	content := "\ufeffCover_Type, B ,A\nSpruce,1,4\nPine,3,8\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	ref, err := assets.ReadReference(path, "Cover_Type")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, ref.FeatureNames)
	assert.Equal(t, []string{"Cover_Type", "B", "A"}, ref.Header)
	assert.InDelta(t, 2.0, ref.Means["B"], 1e-12)
	assert.InDelta(t, 6.0, ref.Means["A"], 1e-12)
}
