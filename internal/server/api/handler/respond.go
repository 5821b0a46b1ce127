package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alia5/padctl/internal/server/api"
)

func respond(res *api.Response, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res.JSON = string(b)
	return nil
}

// parseDuration accepts Go syntax and treats an empty string as zero.
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", field, s)
	}
	return d, nil
}
