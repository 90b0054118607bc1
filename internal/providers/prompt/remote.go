package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// stageError tags a remote failure with the stage it happened in. The stage
// becomes the fallback_reason metadata of the fallback response.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

// completeFunc sends one instruction to a chat model and returns its reply.
type completeFunc func(ctx context.Context, instruction string) (string, error)

// remote is the part shared by the model-backed enhancers: call the model,
// decode its JSON reply, and on any failure hand the request to the
// fallback enhancer.
type remote struct {
	name       string
	complete   completeFunc
	fallback   Enhancer
	onFallback func(reason string, err error)
}

func (r *remote) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	raw, err := r.complete(ctx, instructionFor(req))
	if err != nil {
		return r.fallBack(ctx, req, err)
	}
	res, err := decodeReply(raw, r.name, req.Locale)
	if err != nil {
		return r.fallBack(ctx, req, err)
	}
	return res, nil
}

func (r *remote) fallBack(ctx context.Context, req EnhanceRequest, cause error) (*EnhanceResponse, error) {
	reason := "unknown"
	if se, ok := cause.(*stageError); ok {
		reason = se.stage
	}
	if r.onFallback != nil {
		r.onFallback(reason, cause)
	}

	next := r.fallback
	if next == nil {
		next = NewStaticEnhancer()
	}
	res, err := next.Enhance(ctx, req)
	if res == nil {
		return nil, err
	}
	if res.Provider == "" {
		res.Provider = staticProviderName
	}
	if res.Metadata == nil {
		res.Metadata = make(map[string]string, 1)
	}
	res.Metadata["fallback_reason"] = reason
	return res, err
}

// postJSON sends payload and decodes a 2xx body into out. Failures come back
// as *stageError.
func postJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &stageError{stage: "encode_request", err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &stageError{stage: "build_request", err: err}
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &stageError{stage: "http_request", err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &stageError{
			stage: fmt.Sprintf("http_%d", resp.StatusCode),
			err:   fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &stageError{stage: "decode_response", err: err}
	}
	return nil
}
