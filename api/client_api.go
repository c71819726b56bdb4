// Package api - API-Methoden des Registry-Clients.
// Dieses Modul enthaelt: Push, Status, Infer, Heartbeat.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// PushProgressFunc wird fuer jede Fortschrittsmeldung eines Push aufgerufen.
type PushProgressFunc func(ProgressResponse) error

// Push registriert ein Bundle bei der Registry und streamt den Fortschritt.
// Der eigentliche Blob-Transfer laeuft ueber das registry-Paket; dieser
// Endpunkt meldet das Bundle unter seinem Namen an.
func (c *Client) Push(ctx context.Context, req *PushRequest, fn PushProgressFunc) error {
	return c.stream(ctx, http.MethodPost, "/api/push", req, func(bts []byte) error {
		var resp ProgressResponse
		if err := json.Unmarshal(bts, &resp); err != nil {
			return err
		}
		return fn(resp)
	})
}

// Status fragt den Build-Zustand eines hochgeladenen Bundles ab.
func (c *Client) Status(ctx context.Context, name string) (*BuildStatus, error) {
	var status BuildStatus
	if err := c.do(ctx, http.MethodGet, "/api/status/"+name, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Infer fuehrt eine Remote-Inferenz gegen ein hochgeladenes Modell aus.
func (c *Client) Infer(ctx context.Context, req *InferRequest) (*InferResponse, error) {
	var resp InferResponse
	if err := c.do(ctx, http.MethodPost, "/api/infer", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Heartbeat prueft ob die Registry erreichbar ist.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodHead, "/", nil, nil)
}
