// Command genscenario generates a deterministic mock scenario dataset
// around a fire front, for seeding test environments and demos. It uses
// the actual domain evaluation so the generated labels match what the
// monitor would compute.
//
// Usage:
//
//	go run ./cmd/genscenario \
//	  -dataset-out data/mock/kozhikode_readings.json \
//	  -scenario-out data/mock/kozhikode_scenario.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shadan-pk/wildfire-alert-system/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	datasetOut := flag.String("dataset-out", "", "output path for the raw readings fixture (classifier input)")
	scenarioOut := flag.String("scenario-out", "", "output path for the labeled scenario fixture")
	points := flag.Int("points", 200, "number of points to generate")
	seed := flag.Int64("seed", 42, "random seed")
	centerLat := flag.Float64("center-lat", 11.0400, "fire front latitude")
	centerLon := flag.Float64("center-lon", 76.2630, "fire front longitude")
	flag.Parse()

	if *datasetOut == "" || *scenarioOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -dataset-out, -scenario-out")
	}

	rng := rand.New(rand.NewSource(*seed))

	var readings []map[string]any
	var docs []map[string]any
	hazardous := 0

	for i := 0; i < *points; i++ {
		// Cluster points around the front; fire weather worsens with
		// proximity so labels correlate with position.
		offset := rng.Float64() * 0.2
		angle := rng.Float64() * 2 * math.Pi
		lat := *centerLat + offset*math.Cos(angle)
		lon := *centerLon + offset*math.Sin(angle)

		fwi := 40*(1-offset/0.2) + rng.Float64()*20
		temperature := 28 + fwi/4 + rng.Float64()*3
		humidity := 60 - fwi/2 - rng.Float64()*10
		windSpeed := 5 + fwi/8 + rng.Float64()*4

		readings = append(readings, map[string]any{
			"lat":         round(lat),
			"lon":         round(lon),
			"temperature": round(temperature),
			"humidity":    round(humidity),
			"wind_speed":  round(windSpeed),
			"fwi":         round(fwi),
		})

		prediction := 0
		if fwi >= 30 {
			prediction = 1
			hazardous++
		}

		doc := map[string]any{
			"lat":        round(lat),
			"lon":        round(lon),
			"prediction": prediction,
			"data": map[string]any{
				"temperature": round(temperature),
				"humidity":    round(humidity),
				"wind_speed":  round(windSpeed),
				"fwi":         round(fwi),
			},
		}
		// Wrap every third document in export-style numeric envelopes so
		// fixtures exercise normalization the way real dumps do.
		if i%3 == 0 {
			doc["lat"] = map[string]any{"$numberDouble": strconv.FormatFloat(round(lat), 'f', -1, 64)}
			doc["prediction"] = map[string]any{"$numberInt": strconv.Itoa(prediction)}
		}
		docs = append(docs, doc)
	}

	if err := writeJSON(*datasetOut, readings); err != nil {
		return fmt.Errorf("writing readings fixture: %w", err)
	}
	log.Printf("wrote readings fixture: %s", *datasetOut)

	if err := writeJSON(*scenarioOut, docs); err != nil {
		return fmt.Errorf("writing scenario fixture: %w", err)
	}
	log.Printf("wrote scenario fixture: %s", *scenarioOut)

	printStats(docs, hazardous, *centerLat, *centerLon)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(docs []map[string]any, hazardous int, centerLat, centerLon float64) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(docs))
	fmt.Printf("Hazardous: %d, safe: %d\n", hazardous, len(docs)-hazardous)

	// Count points a bystander at the front center would be endangered by,
	// using the same parse+evaluate path as the monitor.
	entity := domain.TrackedEntity{ID: "probe", Lat: centerLat, Lon: centerLon, Online: true}
	var parsed, dropped, within int
	var hazardPoints []domain.HazardPoint
	for _, doc := range docs {
		p, err := domain.ParseHazardPoint(doc)
		if err != nil {
			dropped++
			continue
		}
		parsed++
		if p.Risk == domain.RiskHazardous {
			hazardPoints = append(hazardPoints, p)
			if domain.DegreeDistance(entity.Lat, entity.Lon, p.Lat, p.Lon) < domain.DefaultDangerThresholdDegrees {
				within++
			}
		}
	}
	verdict := domain.Evaluate(entity, hazardPoints, domain.DefaultDangerThresholdDegrees)

	fmt.Printf("Parsed: %d, dropped: %d\n", parsed, dropped)
	fmt.Printf("Hazardous within threshold of front center: %d\n", within)
	fmt.Printf("Probe verdict at front center: safe=%v min_distance=%g\n", verdict.Safe, verdict.MinDistance)
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
