// Package parser reads lead import files (CSV and YAML) into leads.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/flipdesk/internal/models"
)

// ErrUnsupported is returned for file names with an unknown extension.
var ErrUnsupported = errors.New("unsupported lead file type")

// Extensions lists the accepted lead file extensions.
var Extensions = []string{".csv", ".yaml", ".yml"}

// Supported reports whether name has an accepted extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse reads the leads in data, choosing the format from name's extension.
// Leads without a source get "import:<base name>".
func Parse(name string, data []byte) ([]models.Lead, error) {
	var (
		leads []models.Lead
		err   error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		leads, err = parseCSV(data)
	case ".yaml", ".yml":
		leads, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("parser: %s: %w", name, ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", name, err)
	}

	source := "import:" + filepath.Base(name)
	for i := range leads {
		if leads[i].Source == "" {
			leads[i].Source = source
		}
	}
	return leads, nil
}

// columns maps accepted header names to lead fields.
var columns = map[string]string{
	"address":          "address",
	"street":           "address",
	"property_address": "address",
	"city":             "city",
	"state":            "state",
	"zip":              "zip_code",
	"zip_code":         "zip_code",
	"zipcode":          "zip_code",
	"owner":            "owner_name",
	"owner_name":       "owner_name",
	"phone":            "owner_phone",
	"owner_phone":      "owner_phone",
	"email":            "owner_email",
	"owner_email":      "owner_email",
	"value":            "estimated_value",
	"estimated_value":  "estimated_value",
	"status":           "status",
	"notes":            "notes",
	"source":           "source",
}

// headerKey lowercases a header cell and folds spaces and dashes to underscores.
func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func parseCSV(data []byte) ([]models.Lead, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	fields := make([]string, len(header))
	hasAddress := false
	for i, h := range header {
		fields[i] = columns[headerKey(h)]
		hasAddress = hasAddress || fields[i] == "address"
	}
	if !hasAddress {
		return nil, errors.New("header has no address column")
	}

	var out []models.Lead
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)

		var l models.Lead
		for i, v := range rec {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			if err := set(&l, fields[i], strings.TrimSpace(v)); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if l.Address == "" {
			if blank(rec) {
				continue
			}
			return nil, fmt.Errorf("line %d: address is empty", line)
		}
		out = append(out, l)
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func set(l *models.Lead, field, v string) error {
	switch field {
	case "address":
		l.Address = v
	case "city":
		l.City = v
	case "state":
		l.State = v
	case "zip_code":
		l.ZipCode = v
	case "owner_name":
		l.OwnerName = v
	case "owner_phone":
		l.OwnerPhone = v
	case "owner_email":
		l.OwnerEmail = v
	case "estimated_value":
		m, err := ParseMoney(v)
		if err != nil {
			return err
		}
		l.EstimatedValue = m
	case "status":
		l.Status = v
	case "notes":
		l.Notes = v
	case "source":
		l.Source = v
	}
	return nil
}

// ParseMoney parses "$250,000.00" style amounts. Empty input yields nil.
func ParseMoney(v string) (*float64, error) {
	v = strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	return &f, nil
}

// yamlLead is one entry of a YAML lead file.
type yamlLead struct {
	Address        string   `yaml:"address"`
	City           string   `yaml:"city"`
	State          string   `yaml:"state"`
	ZipCode        string   `yaml:"zip_code"`
	OwnerName      string   `yaml:"owner_name"`
	OwnerPhone     string   `yaml:"owner_phone"`
	OwnerEmail     string   `yaml:"owner_email"`
	EstimatedValue *float64 `yaml:"estimated_value"`
	Status         string   `yaml:"status"`
	Notes          string   `yaml:"notes"`
	Source         string   `yaml:"source"`
}

// parseYAML accepts either a top-level list or a document with a "leads" list.
func parseYAML(data []byte) ([]models.Lead, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	var entries []yamlLead
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&entries); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc struct {
			Leads []yamlLead `yaml:"leads"`
		}
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		entries = doc.Leads
	default:
		return nil, errors.New("expected a list of leads")
	}

	out := make([]models.Lead, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Address) == "" {
			return nil, fmt.Errorf("entry %d: address is empty", i+1)
		}
		out = append(out, models.Lead{
			Address:        strings.TrimSpace(e.Address),
			City:           e.City,
			State:          e.State,
			ZipCode:        e.ZipCode,
			OwnerName:      e.OwnerName,
			OwnerPhone:     e.OwnerPhone,
			OwnerEmail:     e.OwnerEmail,
			EstimatedValue: e.EstimatedValue,
			Status:         e.Status,
			Notes:          e.Notes,
			Source:         e.Source,
		})
	}
	return out, nil
}
