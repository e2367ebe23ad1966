package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// writeOutput renders v as indented JSON or as YAML. YAML output goes
// through JSON first so both formats share the same field names.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		raw, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "encode json")
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrap(err, "decode json")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "flush yaml")
	default:
		return eris.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// readText returns value, or the contents of path when set. A path of "-"
// reads from stdin.
func readText(value, path string, stdin io.Reader) (string, error) {
	if path == "" {
		return value, nil
	}
	if value != "" {
		return "", eris.Errorf("both text and file %s given", path)
	}
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", eris.Wrapf(err, "read %s", path)
	}
	return string(raw), nil
}

// parseThresholds converts --threshold name=value pairs to floats. Names
// are validated by the engine.
func parseThresholds(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for name, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "threshold %s", name)
		}
		out[name] = f
	}
	return out, nil
}
