package ollama

import (
	"context"
	"fmt"
	"net/http"
)

// Model lifecycle operations. These are stateless pass-throughs to the
// local inference server; the only logic is mapping upstream failures
// to messages a desktop user can act on.

// ListModels returns the locally available models (/api/tags).
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var resp modelsResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/tags", nil, &resp,
		"fetching models",
		func(status int, msg string) string {
			return fmt.Sprintf("Unexpected error fetching models (HTTP %d): %s", status, msg)
		})
	if err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// ListRunningModels returns the models currently loaded in memory
// (/api/ps).
func (c *Client) ListRunningModels(ctx context.Context) ([]RunningModel, error) {
	var resp runningModelsResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/ps", nil, &resp,
		"fetching running models",
		func(status int, msg string) string {
			return fmt.Sprintf("Unexpected error fetching running models (HTTP %d): %s", status, msg)
		})
	if err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// ShowModel returns detailed information about one model (/api/show).
func (c *Client) ShowModel(ctx context.Context, model string) (*ShowModelResponse, error) {
	var resp ShowModelResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/show",
		map[string]string{"model": model}, &resp,
		fmt.Sprintf("fetching details for model '%s'", model),
		func(status int, msg string) string {
			switch status {
			case http.StatusNotFound:
				return fmt.Sprintf("Model '%s' not found", model)
			case http.StatusBadRequest:
				return fmt.Sprintf("Invalid request for model '%s': %s", model, msg)
			case http.StatusInternalServerError:
				return fmt.Sprintf("Ollama encountered an internal error while fetching details for model '%s': %s", model, msg)
			default:
				return fmt.Sprintf("Unexpected error fetching details for model '%s' (HTTP %d): %s", model, status, msg)
			}
		})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CopyModel duplicates a model under a new name (/api/copy).
func (c *Client) CopyModel(ctx context.Context, source, destination string) (*StatusResponse, error) {
	err := c.doJSON(ctx, http.MethodPost, "/api/copy",
		map[string]string{"source": source, "destination": destination}, nil,
		fmt.Sprintf("copying model '%s' to '%s'", source, destination),
		func(status int, msg string) string {
			switch status {
			case http.StatusNotFound:
				return fmt.Sprintf("Source model '%s' not found", source)
			case http.StatusBadRequest:
				return fmt.Sprintf("Invalid copy request from '%s' to '%s': %s", source, destination, msg)
			case http.StatusInternalServerError:
				return fmt.Sprintf("Ollama encountered an internal error while copying model '%s' to '%s': %s", source, destination, msg)
			default:
				return fmt.Sprintf("Unexpected error copying model '%s' to '%s' (HTTP %d): %s", source, destination, status, msg)
			}
		})
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Status: "success"}, nil
}

// CreateModel builds a new model from an existing one with an optional
// system prompt (/api/create).
func (c *Client) CreateModel(ctx context.Context, from, model, system string) (*StatusResponse, error) {
	body := map[string]any{"from": from, "model": model, "stream": false}
	if system != "" {
		body["system"] = system
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/create", body, nil,
		fmt.Sprintf("creating model '%s'", model),
		func(status int, msg string) string {
			switch status {
			case http.StatusNotFound:
				return fmt.Sprintf("Base model '%s' not found", from)
			case http.StatusBadRequest:
				return fmt.Sprintf("Invalid create request for model '%s': %s", model, msg)
			case http.StatusInternalServerError:
				return fmt.Sprintf("Ollama encountered an internal error while creating model '%s': %s", model, msg)
			default:
				return fmt.Sprintf("Unexpected error creating model '%s' (HTTP %d): %s", model, status, msg)
			}
		})
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Status: "success"}, nil
}

// PullModel downloads a model from the Ollama registry (/api/pull).
func (c *Client) PullModel(ctx context.Context, model string) (*StatusResponse, error) {
	var resp StatusResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/pull",
		map[string]any{"model": model, "stream": false}, &resp,
		fmt.Sprintf("pulling model '%s'", model),
		func(status int, msg string) string {
			switch status {
			case http.StatusNotFound:
				return fmt.Sprintf("Model '%s' not found in the Ollama registry", model)
			case http.StatusBadRequest:
				return fmt.Sprintf("Invalid model name '%s': %s", model, msg)
			case http.StatusInternalServerError:
				return fmt.Sprintf("Ollama encountered an internal error while pulling model '%s': %s", model, msg)
			default:
				return fmt.Sprintf("Unexpected error pulling model '%s' (HTTP %d): %s", model, status, msg)
			}
		})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PushModel uploads a model to the Ollama registry (/api/push).
func (c *Client) PushModel(ctx context.Context, model string) (*StatusResponse, error) {
	var resp StatusResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/push",
		map[string]any{"model": model, "stream": false}, &resp,
		fmt.Sprintf("pushing model '%s'", model),
		func(status int, msg string) string {
			switch status {
			case http.StatusNotFound:
				return fmt.Sprintf("Model '%s' not found locally", model)
			case http.StatusBadRequest:
				return fmt.Sprintf("Invalid push request for model '%s': %s", model, msg)
			case http.StatusInternalServerError:
				return fmt.Sprintf("Ollama encountered an internal error while pushing model '%s': %s", model, msg)
			default:
				return fmt.Sprintf("Unexpected error pushing model '%s' (HTTP %d): %s", model, status, msg)
			}
		})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteModel removes a local model (/api/delete).
func (c *Client) DeleteModel(ctx context.Context, model string) (*StatusResponse, error) {
	err := c.doJSON(ctx, http.MethodDelete, "/api/delete",
		map[string]string{"model": model}, nil,
		fmt.Sprintf("deleting model '%s'", model),
		func(status int, msg string) string {
			switch status {
			case http.StatusNotFound:
				return fmt.Sprintf("Model '%s' not found and cannot be deleted", model)
			case http.StatusBadRequest:
				return fmt.Sprintf("Invalid model name '%s': %s", model, msg)
			case http.StatusInternalServerError:
				return fmt.Sprintf("Ollama encountered an internal error while deleting model '%s': %s", model, msg)
			default:
				return fmt.Sprintf("Unexpected error deleting model '%s' (HTTP %d): %s", model, status, msg)
			}
		})
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Status: "success"}, nil
}
