package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdetsolar/footprints/internal/geo"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Input   string `short:"i" long:"in"      description:"Input file path. Reads from stdin if empty"`
	Output  string `short:"o" long:"out"     description:"Output file path. Writes to stdout if empty"`
	Reverse bool   `short:"r" long:"reverse" description:"Convert GeoJSONL lines back to a FeatureCollection"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	var outputData []byte
	var count int
	if opts.Reverse {
		outputData, count = toCollection(inputData)
	} else {
		outputData, count = toLines(inputData)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d features to %s\n", count, opts.Output)
	} else {
		if len(outputData) > 0 && outputData[len(outputData)-1] != '\n' {
			outputData = append(outputData, '\n')
		}
		if _, err := os.Stdout.Write(outputData); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing stdout: %v\n", err)
			os.Exit(1)
		}
	}
}

// toLines explodes a FeatureCollection into newline-delimited features.
func toLines(inputData []byte) ([]byte, int) {
	fc, err := geo.ReadFeatureCollection(bytes.NewReader(inputData))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing FeatureCollection: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	w := geo.NewWriter(&buf)
	for i := range fc.Features {
		if err := w.Write(&fc.Features[i]); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding feature %d: %v\n", i, err)
			os.Exit(1)
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding features: %v\n", err)
		os.Exit(1)
	}

	return buf.Bytes(), len(fc.Features)
}

// toCollection gathers newline-delimited features into a FeatureCollection.
// Malformed lines are reported and skipped.
func toCollection(inputData []byte) ([]byte, int) {
	r := geo.NewReader(bytes.NewReader(inputData))
	fc := geo.FeatureCollection{Type: "FeatureCollection", Features: []geo.Feature{}}

	for {
		f, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var lineErr *geo.LineError
		if errors.As(err, &lineErr) {
			fmt.Fprintf(os.Stderr, "Skipping line %d: %v\n", lineErr.Line, lineErr.Err)
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading features: %v\n", err)
			os.Exit(1)
		}

		fc.Features = append(fc.Features, *f)
	}

	outputData, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	return outputData, len(fc.Features)
}
