package detection

import (
	"math/rand/v2"
	"sync"
)

// MaxJitter is the upper bound, in percent of frame, of positional jitter.
const MaxJitter = 5.0

// Generator draws active sets from a catalog. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from rng.
// A nil rng uses a randomly seeded source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rng: rng}
}

// Generate includes each catalog candidate independently with probability p,
// clamped to [0,1]. Included candidates keep catalog order and receive X/Y
// jitter in [0, MaxJitter), bounded so the region stays inside the frame.
// The catalog itself is never modified.
func (g *Generator) Generate(catalog Catalog, p float64) ActiveSet {
	p = min(max(p, 0), 1)

	g.mu.Lock()
	defer g.mu.Unlock()

	active := make(ActiveSet, 0, len(catalog))
	for _, c := range catalog {
		if g.rng.Float64() >= p {
			continue
		}
		c.Region.X = jitter(c.Region.X, c.Region.Width, g.rng.Float64()*MaxJitter)
		c.Region.Y = jitter(c.Region.Y, c.Region.Height, g.rng.Float64()*MaxJitter)
		active = append(active, c)
	}
	return active
}

func jitter(pos, extent, delta float64) float64 {
	return min(pos+delta, max(100-extent, pos))
}
