package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/toko-discount/internal/common"
	"github.com/noah-isme/toko-discount/internal/discount"
	"github.com/noah-isme/toko-discount/internal/pricing"
)

// invalidCartError lists the schema violations found in a cart file.
type invalidCartError struct {
	Fields []common.FieldError
}

func (e *invalidCartError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Path + ": " + f.Message
	}
	return "invalid cart: " + strings.Join(parts, "; ")
}

// loadCart reads the {cartItems, discounts} document the HTTP API accepts,
// in YAML or JSON, and validates it with the same rules.
func loadCart(path string, binder *pricing.Binder) ([]discount.CartItem, []discount.Discount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".yaml", ".yml":
		if data, err = yamlToJSON(data); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported cart file extension %q", filepath.Ext(path))
	}

	var req pricing.ComputeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	items, discounts, fields := binder.Bind(req)
	if len(fields) > 0 {
		return nil, nil, &invalidCartError{Fields: fields}
	}
	return items, discounts, nil
}

// yamlToJSON re-encodes a YAML document as JSON so both formats share one
// schema. Mappings with non-string keys fail to encode and are rejected.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}
