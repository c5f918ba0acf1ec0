package intake

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed markers.yaml
var defaultMarkersYAML []byte

type markerFile struct {
	Markers []string `yaml:"markers"`
}

// DefaultMarkers returns the built-in conversational markers.
func DefaultMarkers() []string {
	markers, err := parseMarkers(defaultMarkersYAML)
	if err != nil {
		panic(fmt.Sprintf("intake: embedded markers: %v", err))
	}
	return markers
}

// LoadMarkers reads a YAML document with a top-level `markers` list.
func LoadMarkers(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markers: %w", err)
	}
	return parseMarkers(raw)
}

func parseMarkers(raw []byte) ([]string, error) {
	var file markerFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode markers yaml: %w", err)
	}
	markers := make([]string, 0, len(file.Markers))
	for _, m := range file.Markers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	if len(markers) == 0 {
		return nil, fmt.Errorf("markers list is empty")
	}
	return markers, nil
}

// MarkerDetector flags text containing any marker as a case-insensitive substring.
type MarkerDetector struct {
	markers []string
}

func NewMarkerDetector(markers []string) *MarkerDetector {
	folded := make([]string, 0, len(markers))
	for _, m := range markers {
		folded = append(folded, cases.Fold().String(m))
	}
	return &MarkerDetector{markers: folded}
}

func (d *MarkerDetector) IsConversational(text string) bool {
	folded := cases.Fold().String(text)
	for _, marker := range d.markers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}
