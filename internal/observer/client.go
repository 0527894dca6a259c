package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabe/mobwatch/internal/engine"
)

// FetchScene reads the latest scene from a running observer at addr
// (host:port or a full URL)
func FetchScene(ctx context.Context, addr string) (engine.Scene, error) {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/scene", nil)
	if err != nil {
		return engine.Scene{}, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return engine.Scene{}, fmt.Errorf("failed to reach observer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return engine.Scene{}, ErrNoScene
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return engine.Scene{}, fmt.Errorf("observer returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var scene engine.Scene
	if err := json.NewDecoder(resp.Body).Decode(&scene); err != nil {
		return engine.Scene{}, fmt.Errorf("failed to decode scene: %w", err)
	}
	return scene, nil
}
