package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/mandelgrid/internal/log"
)

const headComment = `mandelgrid configuration
grid:        sampled rectangle; delta is the spacing on both axes
             origin "shifted" starts each axis one step past its minimum,
             "inclusive" starts at the minimum
iterations:  maximum iterations of z = z*z + c per sample
bound:       escape radius
threads:     worker goroutines (at most one per sample)
output:      dataset path and format (csv, jsonl, sqlite)
tracing:     OpenTelemetry export (none, file, stdout, otlp)`

// IsTOML reports whether path selects the TOML encoding.
func IsTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Save writes cfg to path, as TOML when path ends in .toml and YAML otherwise.
// Comments already present in a YAML file are kept for keys that still exist.
func Save(path string, cfg Config) error {
	var (
		data []byte
		err  error
	)
	if IsTOML(path) {
		data, err = EncodeTOML(cfg)
	} else {
		data, err = saveYAML(path, cfg)
	}
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)
	if err := Save(configPath, Defaults()); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return err
	}
	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

// EncodeYAML renders cfg as a commented YAML document.
func EncodeYAML(cfg Config) ([]byte, error) {
	doc, err := buildDocument(cfg)
	if err != nil {
		return nil, err
	}
	return marshalNode(doc)
}

// EncodeTOML renders cfg as a TOML document.
func EncodeTOML(cfg Config) ([]byte, error) {
	body, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var buf bytes.Buffer
	for _, line := range strings.Split(headComment, "\n") {
		buf.WriteString(strings.TrimRight("# "+line, " "))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes(), nil
}

// saveYAML encodes cfg, merging it into the existing document at path so
// user comments survive.
func saveYAML(path string, cfg Config) ([]byte, error) {
	fresh, err := buildDocument(cfg)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			// Unparseable file: replace it entirely.
			log.Warn(log.CatConfig, "Existing config unparseable, overwriting", "path", path, "error", err)
			return marshalNode(fresh)
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return marshalNode(fresh)
	}

	mergeMapping(doc.Content[0], fresh.Content[0])
	return marshalNode(&doc)
}

func buildDocument(cfg Config) (*yaml.Node, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return nil, fmt.Errorf("building config node: %w", err)
	}
	return &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: headComment,
		Content:     []*yaml.Node{&root},
	}, nil
}

// mergeMapping overwrites the values of dst with those of src, recursing into
// nested mappings. Keys of src missing in dst are appended; keys only in dst
// are kept.
func mergeMapping(dst, src *yaml.Node) {
	for i := 0; i+1 < len(src.Content); i += 2 {
		key, val := src.Content[i], src.Content[i+1]
		found := false
		for j := 0; j+1 < len(dst.Content); j += 2 {
			if dst.Content[j].Value != key.Value {
				continue
			}
			found = true
			old := dst.Content[j+1]
			if old.Kind == yaml.MappingNode && val.Kind == yaml.MappingNode {
				mergeMapping(old, val)
			} else {
				val.LineComment = old.LineComment
				dst.Content[j+1] = val
			}
			break
		}
		if !found {
			dst.Content = append(dst.Content, key, val)
		}
	}
}

func marshalNode(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()
	return buf.Bytes(), nil
}

// writeAtomic writes data to a temp file next to path, then renames it.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
