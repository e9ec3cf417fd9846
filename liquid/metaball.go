package liquid

// Metaball is one blob of the metaball field, in field space.
type Metaball struct {
	Pos    FPoint
	Radius float64
}

type chainLink struct {
	pos       FPoint
	vel       FPoint
	stiffness float64
	damping   float64
	radius    float64
}

// MetaballChain is a set of blobs chasing the pointer on springs.
// Later blobs are looser and smaller so they trail behind the leader.
type MetaballChain struct {
	links []chainLink
	balls []Metaball
}

func NewMetaballChain(mp MetaballParams, start FPoint) *MetaballChain {
	mc := &MetaballChain{
		links: make([]chainLink, mp.Count),
		balls: make([]Metaball, mp.Count),
	}

	for i := range mc.links {
		fi := f64(i)
		mc.links[i] = chainLink{
			pos:       start,
			stiffness: mp.Stiffness - fi*mp.StiffnessStep,
			damping:   mp.Damping + fi*mp.DampingStep,
			radius:    mp.Radius - fi*mp.RadiusStep,
		}
	}
	mc.sync()

	return mc
}

// Update moves every blob one frame towards target.
func (mc *MetaballChain) Update(target FPoint) {
	for i := range mc.links {
		l := &mc.links[i]

		// spring
		l.vel = l.vel.Add(target.Sub(l.pos).Scale(l.stiffness))
		// damping
		l.vel = l.vel.Scale(l.damping)

		l.pos = l.pos.Add(l.vel)
	}
	mc.sync()
}

func (mc *MetaballChain) sync() {
	for i, l := range mc.links {
		mc.balls[i] = Metaball{Pos: l.pos, Radius: l.radius}
	}
}

// Balls returns the current blobs. The slice is reused between updates.
func (mc *MetaballChain) Balls() []Metaball {
	return mc.balls
}

const metaballEpsilon = 1e-6

// MetaballInfluence is the summed inverse square influence at uv.
func MetaballInfluence(uv FPoint, balls []Metaball, aspect float64) float64 {
	total := 0.0
	p := aspectScale(uv, aspect)
	for _, b := range balls {
		d := p.Sub(aspectScale(b.Pos, aspect))
		total += (b.Radius * b.Radius) / (d.LengthSquared() + metaballEpsilon)
	}
	return total
}

// MetaballMask thresholds the influence into [0, 1].
func MetaballMask(uv FPoint, balls []Metaball, aspect float64, mp MetaballParams) float64 {
	if len(balls) == 0 {
		return 0
	}
	return Smoothstep(mp.MaskLow, mp.MaskHigh, MetaballInfluence(uv, balls, aspect))
}
