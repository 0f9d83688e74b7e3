// Package detection simulates a traffic-violation detector by sampling a
// fixed catalog of candidates on each tick.
package detection

// Region is a bounding box expressed as percentages of the camera frame.
type Region struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Candidate is one violation the detector can report.
type Candidate struct {
	Label        string `json:"label" yaml:"label"`
	DisplayClass string `json:"displayClass" yaml:"display_class"`
	Region       Region `json:"region" yaml:"region"`
}

// Catalog is the ordered set of candidates a generator samples from.
type Catalog []Candidate

// ActiveSet is the subset of a catalog detected on one draw, in catalog order.
type ActiveSet []Candidate

// Labels returns the candidate labels in order.
func (a ActiveSet) Labels() []string {
	labels := make([]string, len(a))
	for i, c := range a {
		labels[i] = c.Label
	}
	return labels
}

// DefaultCatalog returns the built-in four-candidate catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Label:        "Helmet Violation",
			DisplayClass: "helmet",
			Region:       Region{X: 12, Y: 18, Width: 22, Height: 30},
		},
		{
			Label:        "Red Light Jump",
			DisplayClass: "redlight",
			Region:       Region{X: 58, Y: 10, Width: 28, Height: 24},
		},
		{
			Label:        "Triple Riding",
			DisplayClass: "triple",
			Region:       Region{X: 30, Y: 52, Width: 26, Height: 32},
		},
		{
			Label:        "Wrong Side Driving",
			DisplayClass: "wrongside",
			Region:       Region{X: 64, Y: 48, Width: 24, Height: 28},
		},
	}
}
