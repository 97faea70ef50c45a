// Command generate-artifacts writes a synthetic reference dataset and a
// matching demo model so the predictor can be run locally without a trained
// pipeline.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"covertype/internal/common"
	"covertype/internal/ml"
)

var numericColumns = []struct {
	name      string
	mean, std float64
}{
	{"Elevation", 2959, 280},
	{"Aspect", 155, 112},
	{"Slope", 14, 7.5},
	{"Horizontal_Distance_To_Hydrology", 269, 212},
	{"Vertical_Distance_To_Hydrology", 46, 58},
	{"Horizontal_Distance_To_Roadways", 2350, 1559},
	{"Hillshade_9am", 212, 27},
	{"Hillshade_Noon", 223, 20},
	{"Hillshade_3pm", 143, 38},
	{"Horizontal_Distance_To_Fire_Points", 1980, 1324},
}

var labels = []string{
	"Spruce/Fir", "Lodgepole Pine", "Ponderosa Pine", "Cottonwood/Willow",
	"Aspen", "Douglas-fir", "Krummholz",
}

// elevationCenters is the typical elevation of each cover type.
var elevationCenters = []float64{3130, 2920, 2390, 2220, 2790, 2420, 3360}

const (
	wildernessAreas = 4
	soilTypes       = 40
)

func main() {
	var (
		outDir = flag.String("out", ".", "Output directory for artifacts")
		rows   = flag.Int("rows", 2000, "Number of reference rows to generate")
		seed   = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating sample artifacts...\n")
	fmt.Printf("  Rows: %d\n", *rows)
	fmt.Printf("  Output: %s\n", *outDir)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	names := featureNames()
	data, classes := generateRows(rand.New(rand.NewSource(*seed)), *rows)

	if err := writeReference(filepath.Join(*outDir, common.DefaultReferencePath), names, data, classes); err != nil {
		log.Fatalf("Failed to write reference dataset: %v", err)
	}

	mean, scale := fitScaler(data)
	scaler := map[string]any{
		"kind":          ml.KindStandardScaler,
		"mean":          mean,
		"scale":         scale,
		"feature_names": names,
	}
	if err := writeJSON(filepath.Join(*outDir, common.DefaultScalerPath), scaler); err != nil {
		log.Fatalf("Failed to write scaler: %v", err)
	}

	coef, intercept := demoCoefficients(len(names), mean[0], scale[0])
	model := map[string]any{
		"kind":        ml.KindLogisticRegression,
		"classes":     []int{0, 1, 2, 3, 4, 5, 6},
		"coef":        coef,
		"intercept":   intercept,
		"multi_class": "multinomial",
	}
	if err := writeJSON(filepath.Join(*outDir, common.DefaultModelPath), model); err != nil {
		log.Fatalf("Failed to write model: %v", err)
	}

	if err := writeJSON(filepath.Join(*outDir, common.DefaultEncoderPath), map[string]any{"classes": labels}); err != nil {
		log.Fatalf("Failed to write label encoder: %v", err)
	}

	fmt.Printf("✓ Wrote %d features, %d classes\n", len(names), len(labels))
}

func featureNames() []string {
	names := make([]string, 0, len(numericColumns)+wildernessAreas+soilTypes)
	for _, c := range numericColumns {
		names = append(names, c.name)
	}
	for i := 1; i <= wildernessAreas; i++ {
		names = append(names, common.DefaultWildernessPrefix+strconv.Itoa(i))
	}
	for i := 1; i <= soilTypes; i++ {
		names = append(names, common.DefaultSoilPrefix+strconv.Itoa(i))
	}
	return names
}

// generateRows draws a class first, then features loosely conditioned on it.
func generateRows(rng *rand.Rand, n int) ([][]float64, []int) {
	width := len(numericColumns) + wildernessAreas + soilTypes
	data := make([][]float64, n)
	classes := make([]int, n)

	for i := range data {
		class := rng.Intn(len(labels))
		row := make([]float64, width)
		for j, c := range numericColumns {
			row[j] = c.mean + rng.NormFloat64()*c.std
		}
		row[0] = elevationCenters[class] + rng.NormFloat64()*120
		row[2] = math.Max(0, row[2])

		area := (class + rng.Intn(2)) % wildernessAreas
		row[len(numericColumns)+area] = 1
		soil := (class*5 + rng.Intn(6)) % soilTypes
		row[len(numericColumns)+wildernessAreas+soil] = 1

		data[i] = row
		classes[i] = class
	}
	return data, classes
}

func fitScaler(data [][]float64) (mean, scale []float64) {
	width := len(data[0])
	mean = make([]float64, width)
	scale = make([]float64, width)
	for _, row := range data {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(data))
	}
	for _, row := range data {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / float64(len(data)))
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return mean, scale
}

// demoCoefficients scores each class by the negative squared distance of the
// scaled elevation from the class center, expanded into a linear term.
func demoCoefficients(width int, elevMean, elevScale float64) ([][]float64, []float64) {
	coef := make([][]float64, len(labels))
	intercept := make([]float64, len(labels))
	for k, center := range elevationCenters {
		c := (center - elevMean) / elevScale
		coef[k] = make([]float64, width)
		coef[k][0] = 4 * c
		intercept[k] = -2 * c * c
		coef[k][len(numericColumns)+k%wildernessAreas] = 0.5
	}
	return coef, intercept
}

func writeReference(path string, names []string, data [][]float64, classes []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append(append([]string(nil), names...), common.DefaultLabelColumn)); err != nil {
		return err
	}
	record := make([]string, len(names)+1)
	for i, row := range data {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		record[len(names)] = strconv.Itoa(classes[i] + 1)
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
