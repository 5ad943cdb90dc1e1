package resource

import (
	"math"
	"sort"
	"sync"

	"github.com/rcsfx/extension/pkg/core"
)

// Tank holds one resource on one part.
type Tank struct {
	PartID   string  `json:"partId" mapstructure:"partId"`
	Stage    int     `json:"stage" mapstructure:"stage"`
	Resource string  `json:"resource" mapstructure:"resource"`
	Amount   float64 `json:"amount" mapstructure:"amount"`
	Capacity float64 `json:"capacity" mapstructure:"capacity"`
}

// Pool is the vessel-wide set of tanks. It is the only shared mutable state
// touched during thrust allocation.
type Pool struct {
	mu        sync.Mutex
	lib       *Library
	tanks     []*Tank
	unlimited bool
}

// NewPool creates an empty pool resolving names through lib.
func NewPool(lib *Library) *Pool {
	if lib == nil {
		lib = DefaultLibrary()
	}
	return &Pool{lib: lib}
}

// Library returns the pool's resource library.
func (p *Pool) Library() *Library {
	return p.lib
}

// AddTank adds a tank. Capacity defaults to the initial amount.
func (p *Pool) AddTank(t Tank) {
	if t.Capacity < t.Amount {
		t.Capacity = t.Amount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tanks = append(p.tanks, &t)
}

// SetUnlimited toggles infinite propellant; every request is granted in full.
func (p *Pool) SetUnlimited(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlimited = v
}

// Unlimited reports whether infinite propellant is active.
func (p *Pool) Unlimited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unlimited
}

// Amount returns the total amount of a resource across all tanks.
func (p *Pool) Amount(resource string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total float64
	for _, t := range p.tanks {
		if t.Resource == resource {
			total += t.Amount
		}
	}
	return total
}

// Totals returns the summed amount per resource held in any tank.
func (p *Pool) Totals() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64)
	for _, t := range p.tanks {
		out[t.Resource] += t.Amount
	}
	return out
}

// Requester binds the pool to the part issuing requests, so NO_FLOW
// propellants only drain that part's own tanks.
func (p *Pool) Requester(partID string) *Requester {
	return &Requester{pool: p, partID: partID}
}

// Requester requests propellant on behalf of one part.
type Requester struct {
	pool   *Pool
	partID string
}

// Request asks for mass of the mixture described by props, consumes what is
// available and returns the granted fraction in [0, 1]. Unresolved resources
// grant nothing.
func (r *Requester) Request(props []core.Propellant, mass float64) float64 {
	return r.pool.request(r.partID, props, mass)
}

func (p *Pool) request(partID string, props []core.Propellant, mass float64) float64 {
	if mass <= 0 {
		return 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unlimited {
		return 1
	}

	density, ok := p.lib.MixtureDensity(props)
	if !ok {
		return 0
	}

	type draw struct {
		need   float64
		groups [][]*Tank
	}
	draws := make([]draw, 0, len(props))
	fraction := 1.0
	for _, prop := range props {
		if prop.Ratio <= 0 {
			continue
		}
		d := draw{
			need:   prop.Ratio * mass / density,
			groups: p.eligible(partID, prop),
		}
		var avail float64
		for _, g := range d.groups {
			avail += total(g)
		}
		fraction = math.Min(fraction, avail/d.need)
		draws = append(draws, d)
	}
	if len(draws) == 0 {
		return 0
	}
	fraction = math.Max(fraction, 0)

	for _, d := range draws {
		remaining := d.need * fraction
		for _, g := range d.groups {
			if remaining <= 0 {
				break
			}
			take := math.Min(remaining, total(g))
			drain(g, take)
			remaining -= take
		}
	}
	return fraction
}

// eligible returns the tanks a propellant may draw from as groups in drain
// order. Stage priority yields one group per stage, highest stage first;
// other flow modes yield a single group.
func (p *Pool) eligible(partID string, prop core.Propellant) [][]*Tank {
	var out []*Tank
	for _, t := range p.tanks {
		if t.Resource != prop.Name || t.Amount <= 0 {
			continue
		}
		if prop.FlowMode == core.FlowNoFlow && t.PartID != partID {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	if prop.FlowMode == core.FlowStagePriority {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Stage > out[j].Stage })
		return stageGroups(out)
	}
	return [][]*Tank{out}
}

// stageGroups splits tanks sorted by descending stage into per-stage runs.
func stageGroups(sorted []*Tank) [][]*Tank {
	var groups [][]*Tank
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].Stage != sorted[start].Stage {
			groups = append(groups, sorted[start:i])
			start = i
		}
	}
	return groups
}

func total(tanks []*Tank) float64 {
	var sum float64
	for _, t := range tanks {
		sum += t.Amount
	}
	return sum
}

// drain removes amount from tanks proportionally to what each holds.
func drain(tanks []*Tank, amount float64) {
	sum := total(tanks)
	if sum <= 0 || amount <= 0 {
		return
	}
	for _, t := range tanks {
		t.Amount -= amount * t.Amount / sum
		if t.Amount < 0 {
			t.Amount = 0
		}
	}
}
