package detection

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog reports a catalog that cannot be sampled.
var ErrInvalidCatalog = errors.New("invalid catalog")

type catalogFile struct {
	Candidates Catalog `yaml:"candidates"`
}

// LoadCatalog reads a YAML catalog of the form:
//
//	candidates:
//	  - label: Helmet Violation
//	    display_class: helmet
//	    region: {x: 12, y: 18, width: 22, height: 30}
//
// An empty path returns DefaultCatalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := file.Candidates.Validate(); err != nil {
		return nil, err
	}
	return file.Candidates, nil
}

// Validate checks that the catalog is non-empty, labels are present and
// unique, and every region lies within the frame.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no candidates", ErrInvalidCatalog)
	}

	seen := make(map[string]struct{}, len(c))
	for i, cand := range c {
		if cand.Label == "" {
			return fmt.Errorf("%w: candidate %d has no label", ErrInvalidCatalog, i)
		}
		if _, dup := seen[cand.Label]; dup {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidCatalog, cand.Label)
		}
		seen[cand.Label] = struct{}{}

		r := cand.Region
		for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
			if v < 0 || v > 100 {
				return fmt.Errorf("%w: %q region outside frame", ErrInvalidCatalog, cand.Label)
			}
		}
		if r.X+r.Width > 100 || r.Y+r.Height > 100 {
			return fmt.Errorf("%w: %q region outside frame", ErrInvalidCatalog, cand.Label)
		}
	}
	return nil
}
