package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// coverageScript pulls the instrumentation counters the application under
// test accumulates in the page.
const coverageScript = "return window.__coverage__ || null"

const coverageFileMode = 0o600

// collectCoverage stores the session's coverage counters as one JSON
// document per case.
func (e *Engine) collectCoverage(ctx context.Context, caseName string, browser Browser) error {
	raw, err := browser.Execute(ctx, coverageScript)
	if err != nil {
		return err
	}

	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("page carries no coverage counters")
	}

	if err := os.MkdirAll(e.cfg.Coverage.Dir, 0o750); err != nil {
		return err
	}

	file := filepath.Join(e.cfg.Coverage.Dir, coverageFileName(caseName))

	return os.WriteFile(file, raw, coverageFileMode)
}

func coverageFileName(caseName string) string {
	sanitized := strings.NewReplacer("/", "_", " ", "_", "*", "_").Replace(caseName)

	return sanitized + ".json"
}

// MergeCoverage merges every per-case coverage document in dir into one
// artifact, adding counters where both sides count the same thing. The
// merged file path is returned.
func MergeCoverage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	merged := make(map[string]interface{})

	documents := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") || entry.Name() == "merged.json" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return "", err
		}

		var document map[string]interface{}
		if err := json.Unmarshal(raw, &document); err != nil {
			return "", fmt.Errorf("coverage document '%s' is invalid: %w", entry.Name(), err)
		}

		merged = mergeValues(merged, document).(map[string]interface{})
		documents++
	}

	if documents == 0 {
		return "", fmt.Errorf("no coverage documents in '%s'", dir)
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return "", err
	}

	mergedFile := filepath.Join(dir, "merged.json")

	return mergedFile, os.WriteFile(mergedFile, out, coverageFileMode)
}

// mergeValues adds numbers counter-wise and recurses into objects. On a
// shape mismatch the newer value wins.
func mergeValues(a, b interface{}) interface{} {
	switch existing := a.(type) {
	case map[string]interface{}:
		incoming, ok := b.(map[string]interface{})
		if !ok {
			return b
		}

		for key, value := range incoming {
			if current, ok := existing[key]; ok {
				existing[key] = mergeValues(current, value)
			} else {
				existing[key] = value
			}
		}

		return existing

	case float64:
		if incoming, ok := b.(float64); ok {
			return existing + incoming
		}

		return b

	default:
		return b
	}
}
