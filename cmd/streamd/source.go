package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mathonsunday/agentic-ui-lab-sub001/producer"
	"github.com/mathonsunday/agentic-ui-lab-sub001/service"
)

// echoAnalysis is the built-in upstream stand-in: it reflects the user
// input back as the response with a neutral confidence delta. A real
// deployment swaps this factory for one backed by a model endpoint.
type echoAnalysis struct {
	Response        string `json:"response"`
	ConfidenceDelta int    `json:"confidenceDelta"`
}

type echoSource struct {
	doc  string
	done bool
}

func (s *echoSource) Next(_ context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.doc, nil
}

func echoSourceFactory() service.SourceFactory {
	return func(_ context.Context, _, userInput string) (producer.ChunkSource, error) {
		doc, err := json.Marshal(echoAnalysis{
			Response: "You said: " + userInput,
		})
		if err != nil {
			return nil, err
		}
		return &echoSource{doc: string(doc)}, nil
	}
}
