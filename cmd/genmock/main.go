// Command genmock generates synthetic localization result documents for
// exercising the converter and the streaming pipeline. Output is fully
// determined by the seed, so fixtures can be regenerated byte for byte.
// The generated document is run through the real normalizer and summary
// statistics are printed.
//
// Usage:
//
//	go run ./cmd/genmock -events 500 -seed 7 -out data/mock/localized_events.json
//	go run ./cmd/genmock -events 50 -publish -brokers localhost:9092 -topic localization-results
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/observability"
	"github.com/couchcryptid/localized-events-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

const timestampLayout = "2006-01-02T15:04:05.000000-07:00"

var (
	baseTime  = time.Date(2022, time.February, 7, 20, 0, 0, 0, time.FixedZone("EST", -5*60*60))
	labels    = []string{"zeep", "chip", "trill", "buzz"}
	receivers = 12
)

// mockEvent is one generated localized event, including residual_rms and a
// receiver_locations key that the normalizer must drop.
type mockEvent struct {
	StartTimestamp           string       `json:"start_timestamp"`
	Duration                 float64      `json:"duration"`
	ClassName                string       `json:"class_name"`
	LocationEstimate         []float64    `json:"location_estimate"`
	ReceiverFiles            []string     `json:"receiver_files"`
	ReceiverStartTimeOffsets []float64    `json:"receiver_start_time_offsets"`
	TDOAs                    []float64    `json:"tdoas"`
	DistanceResiduals        []float64    `json:"distance_residuals"`
	ResidualRMS              float64      `json:"residual_rms"`
	ReceiverLocations        [][2]float64 `json:"receiver_locations"`
}

type mockDocument struct {
	LocalizedEvents []mockEvent `json:"localized_events"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	count := flag.Int("events", 100, "number of events to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	out := flag.String("out", "", "output path for the JSON document (stdout if empty)")
	prefix := flag.String("prefix", "", "event id prefix used for the summary and published header")
	publish := flag.Bool("publish", false, "publish the document to Kafka as one message")
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
	topic := flag.String("topic", "localization-results", "Kafka topic to publish to")
	flag.Parse()

	if *count < 0 {
		return fmt.Errorf("-events must not be negative")
	}

	doc := generate(*count, rand.New(rand.NewPCG(*seed, *seed)))
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	if err := writeDocument(*out, data); err != nil {
		return err
	}

	if err := printStats(data, *prefix); err != nil {
		return err
	}

	if *publish {
		if err := publishDocument(strings.Split(*brokers, ","), *topic, *prefix, data); err != nil {
			return err
		}
		log.Printf("published document to %s", *topic)
	}
	return nil
}

func generate(n int, rng *rand.Rand) mockDocument {
	events := make([]mockEvent, n)
	at := baseTime
	for i := range events {
		at = at.Add(time.Duration(500+rng.IntN(4000)) * time.Millisecond)
		offset := at.Sub(baseTime).Seconds()

		k := 4 + rng.IntN(3)
		files := make([]string, k)
		offsets := make([]float64, k)
		tdoas := make([]float64, k)
		residuals := make([]float64, k)
		locations := make([][2]float64, k)
		for j := 0; j < k; j++ {
			r := rng.IntN(receivers) + 1
			files[j] = fmt.Sprintf("LOCA_%02d.wav", r)
			offsets[j] = offset
			if j > 0 {
				tdoas[j] = (rng.Float64() - 0.5) / 10
				residuals[j] = (rng.Float64() - 0.5) * 10
			}
			locations[j] = [2]float64{float64((r - 1) % 4 * 30), float64((r - 1) / 4 * 30)}
		}

		events[i] = mockEvent{
			StartTimestamp:           at.Format(timestampLayout),
			Duration:                 float64(1 + rng.IntN(4)),
			ClassName:                labels[rng.IntN(len(labels))],
			LocationEstimate:         []float64{rng.Float64() * 90, rng.Float64() * 60, 0},
			ReceiverFiles:            files,
			ReceiverStartTimeOffsets: offsets,
			TDOAs:                    tdoas,
			DistanceResiduals:        residuals,
			ResidualRMS:              rng.Float64() * 10,
			ReceiverLocations:        locations,
		}
	}
	return mockDocument{LocalizedEvents: events}
}

func writeDocument(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	log.Printf("wrote document: %s", path)
	return nil
}

// printStats normalizes the document with and without the residual filter
// used by the upstream export and reports the row counts.
func printStats(data []byte, prefix string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, threshold := range []float64{0, 5} {
		n := pipeline.NewNormalizer(domain.LoadOptions{MaxResidualRMS: threshold}, logger, observability.NewUnregisteredMetrics(), nil)
		res, err := n.Normalize(data, prefix)
		if err != nil {
			return fmt.Errorf("normalize generated document: %w", err)
		}
		first := ""
		if len(res.Events) > 0 {
			first = res.Events[0].EventID
		}
		log.Printf("max_residual_rms=%g: %d rows, %d filtered, first id %q", threshold, len(res.Events), res.Filtered, first)
	}
	return nil
}

func publishDocument(brokers []string, topic, prefix string, data []byte) error {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	msg := kafkago.Message{Key: []byte(baseTime.Format(time.RFC3339)), Value: data}
	if prefix != "" {
		msg.Headers = []kafkago.Header{{Key: pipeline.PrefixHeader, Value: []byte(prefix)}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish document: %w", err)
	}
	return nil
}
