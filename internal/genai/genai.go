// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genai is the client side of the text-generation service: the
// Generator interface, the Claude backend, credential rotation on quota
// exhaustion, rate-limited decoration, and helpers that pull JSON out of
// free-form model output.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Generator turns a prompt into text. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var (
	// ErrQuotaExhausted marks a response that means the current credential
	// cannot be used until its quota resets. Backends wrap it.
	ErrQuotaExhausted = errors.New("generation quota exhausted")

	// ErrCredentialsExhausted is returned once every credential has hit its
	// quota for the same call.
	ErrCredentialsExhausted = errors.New("all generation credentials exhausted")

	// ErrNoJSON means the text held no JSON value of the requested kind.
	ErrNoJSON = errors.New("no JSON value in response")
)

// DecodeObject decodes the first JSON object in text. Markdown code fences
// and prose around it are ignored. A reply whose value is an array fails,
// even when the array holds objects.
func DecodeObject(text string) (map[string]any, error) {
	var m map[string]any
	if err := decodeFirst(text, '{', &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeArray decodes the first JSON array in text. An object reply fails,
// even when one of its fields is an array.
func DecodeArray(text string) ([]any, error) {
	var a []any
	if err := decodeFirst(text, '[', &a); err != nil {
		return nil, err
	}
	return a, nil
}

// decodeFirst scans the unfenced text for JSON values starting at '{' or
// '['. Brackets that do not start a valid value are prose and skipped. A
// complete value of the other kind is skipped whole, so nothing nested in it
// is taken. The first complete value opening with open is decoded into v.
func decodeFirst(text string, open byte, v any) error {
	text = stripFence(text)
	var lastErr error
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '{' && c != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			lastErr = err
			continue
		}
		if c != open {
			i += int(dec.InputOffset()) - 1
			continue
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decoding JSON: %w", err)
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrNoJSON, lastErr)
	}
	return ErrNoJSON
}

// stripFence returns the body of the first ``` fenced block in text, or text
// unchanged when there is no complete fence.
func stripFence(text string) string {
	const fence = "```"
	start := strings.Index(text, fence)
	if start < 0 {
		return text
	}
	body := text[start+len(fence):]
	// Skip the info string ("json") on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	end := strings.Index(body, fence)
	if end < 0 {
		return text
	}
	return body[:end]
}
