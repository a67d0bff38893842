package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fileDoc struct {
	Products productMap `yaml:"products"`
}

type productDoc struct {
	Name        string      `yaml:"name"`
	Price       money       `yaml:"price"`
	OldPrice    *money      `yaml:"old_price"`
	Description string      `yaml:"description"`
	Details     string      `yaml:"details"`
	Features    []string    `yaml:"features"`
	Colors      colorMap    `yaml:"colors"`
	Reviews     []reviewDoc `yaml:"reviews"`
	Similar     []string    `yaml:"similar"`
	Payments    []string    `yaml:"payments"`
}

type colorDoc struct {
	Name   string   `yaml:"name"`
	Swatch string   `yaml:"swatch"`
	Images []string `yaml:"images"`
}

type reviewDoc struct {
	Author string   `yaml:"author"`
	Rating int      `yaml:"rating"`
	Text   string   `yaml:"text"`
	Photos []string `yaml:"photos"`
}

// money decodes a YAML scalar straight into a decimal so prices never pass through float64.
type money struct {
	decimal.Decimal
}

func (m *money) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a scalar", node.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid price %q: %w", node.Line, node.Value, err)
	}
	m.Decimal = d
	return nil
}

type keyedProduct struct {
	id  string
	doc productDoc
}

// productMap keeps products in file order.
type productMap []keyedProduct

func (pm *productMap) UnmarshalYAML(node *yaml.Node) error {
	return decodeOrdered(node, func(key string, value *yaml.Node) error {
		var doc productDoc
		if err := value.Decode(&doc); err != nil {
			return fmt.Errorf("product %q: %w", key, err)
		}
		*pm = append(*pm, keyedProduct{id: key, doc: doc})
		return nil
	})
}

type keyedColor struct {
	key string
	doc colorDoc
}

// colorMap keeps color variants in file order.
type colorMap []keyedColor

func (cm *colorMap) UnmarshalYAML(node *yaml.Node) error {
	return decodeOrdered(node, func(key string, value *yaml.Node) error {
		var doc colorDoc
		if err := value.Decode(&doc); err != nil {
			return fmt.Errorf("color %q: %w", key, err)
		}
		*cm = append(*cm, keyedColor{key: key, doc: doc})
		return nil
	})
}

func decodeOrdered(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := strings.TrimSpace(node.Content[i].Value)
		if key == "" {
			return fmt.Errorf("line %d: empty key", node.Content[i].Line)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("line %d: duplicate key %q", node.Content[i].Line, key)
		}
		seen[key] = struct{}{}
		if err := fn(key, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Parse decodes a catalog document.
func Parse(r io.Reader) ([]Product, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	products := make([]Product, 0, len(doc.Products))
	for _, kp := range doc.Products {
		products = append(products, kp.toProduct())
	}
	return products, nil
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	products, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return products, nil
}

func (kp keyedProduct) toProduct() Product {
	d := kp.doc
	p := Product{
		ID:          kp.id,
		Name:        strings.TrimSpace(d.Name),
		Price:       d.Price.Decimal,
		Description: d.Description,
		Details:     d.Details,
		Features:    d.Features,
		Similar:     d.Similar,
		Payments:    d.Payments,
	}
	if d.OldPrice != nil {
		old := d.OldPrice.Decimal
		p.OldPrice = &old
	}
	for _, kc := range d.Colors {
		p.Colors = append(p.Colors, Color{
			Key:    kc.key,
			Name:   kc.doc.Name,
			Swatch: kc.doc.Swatch,
			Images: kc.doc.Images,
		})
	}
	for _, r := range d.Reviews {
		p.Reviews = append(p.Reviews, Review{
			Author: r.Author,
			Rating: r.Rating,
			Text:   r.Text,
			Photos: r.Photos,
		})
	}
	return p
}
