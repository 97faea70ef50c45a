// Package assetstest writes a small, fully consistent set of artifacts for
// tests in other packages.
//
// The fixture has two numeric columns, two wilderness areas and two soil
// types. The classifier only looks at the categorical indicators:
//
//	Wilderness_Area_A, Soil_Type_X -> Spruce/Fir
//	Wilderness_Area_B, Soil_Type_X -> Lodgepole Pine
//	any area,          Soil_Type_Y -> Ponderosa Pine
package assetstest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"covertype/internal/assets"
	"covertype/internal/features"
	"covertype/internal/ml"

	"github.com/stretchr/testify/require"
)

const LabelColumn = "Cover_Type"

var (
	Prefixes = features.Prefixes{Wilderness: "Wilderness_Area_", Soil: "Soil_Type_"}

	FeatureNames = []string{
		"Elevation", "Slope",
		"Wilderness_Area_A", "Wilderness_Area_B",
		"Soil_Type_X", "Soil_Type_Y",
	}

	Labels = []string{"Spruce/Fir", "Lodgepole Pine", "Ponderosa Pine"}

	// Means of the numeric columns in Reference.
	Means = map[string]float64{"Elevation": 2900.5, "Slope": 15.25}
)

// Reference is the CSV written as the reference dataset.
const Reference = `Elevation,Slope,Wilderness_Area_A,Wilderness_Area_B,Soil_Type_X,Soil_Type_Y,Cover_Type
2800,10,1,0,1,0,1
3001,20.5,0,1,0,1,2
`

// Options tweaks the generated artifacts.
type Options struct {
	// Classifier is written as a linear SVC, which has no probabilities.
	NoProbabilities bool
	// Replaces the scaler's feature names, for layout mismatch tests.
	ScalerNames []string
}

// Classifier returns the classifier artifact as a JSON-ready map.
func Classifier(opts Options) map[string]any {
	kind := ml.KindLogisticRegression
	if opts.NoProbabilities {
		kind = ml.KindLinearSVC
	}
	return map[string]any{
		"kind":    kind,
		"classes": []int{0, 1, 2},
		"coef": [][]float64{
			{0, 0, 2, 0, 0, 0},
			{0, 0, 0, 2, 0, 0},
			{0, 0, 0, 0, 0, 3},
		},
		"intercept": []float64{0.1, 0, -0.5},
	}
}

// Write creates the four artifacts in dir and returns their paths.
func Write(t testing.TB, dir string, opts Options) assets.Paths {
	t.Helper()

	names := FeatureNames
	if opts.ScalerNames != nil {
		names = opts.ScalerNames
	}
	n := len(names)
	scaler := map[string]any{
		"kind":          ml.KindStandardScaler,
		"mean":          make([]float64, n),
		"scale":         ones(n),
		"feature_names": names,
	}

	paths := assets.Paths{
		Model:     filepath.Join(dir, "model.json"),
		Scaler:    filepath.Join(dir, "scaler.json"),
		Encoder:   filepath.Join(dir, "label_encoder.json"),
		Reference: filepath.Join(dir, "cover_type.csv"),
	}
	WriteJSON(t, paths.Model, Classifier(opts))
	WriteJSON(t, paths.Scaler, scaler)
	WriteJSON(t, paths.Encoder, map[string]any{"classes": Labels})
	require.NoError(t, os.WriteFile(paths.Reference, []byte(Reference), 0o600))
	return paths
}

// Load writes the fixture to a temporary directory and loads it.
func Load(t testing.TB, opts Options) *assets.Assets {
	t.Helper()
	a, err := assets.Load(Write(t, t.TempDir(), opts), assets.Options{
		LabelColumn: LabelColumn,
		Prefixes:    Prefixes,
	})
	require.NoError(t, err)
	return a
}

// WriteJSON marshals v into path.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
