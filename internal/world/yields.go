package world

// Yields is the 5-tuple of per-turn outputs a tile or city produces.
// All fields are signed: modifiers may subtract, and consumers clamp
// where a negative total is not meaningful.
type Yields struct {
	Food       int `json:"food"`
	Production int `json:"production"`
	Gold       int `json:"gold"`
	Science    int `json:"science"`
	Culture    int `json:"culture"`
}

// NewYields builds a yield tuple in field order.
func NewYields(food, production, gold, science, culture int) Yields {
	return Yields{Food: food, Production: production, Gold: gold, Science: science, Culture: culture}
}

// ZeroYields is the additive identity.
func ZeroYields() Yields {
	return Yields{}
}

// Add returns the component-wise sum.
func (y Yields) Add(o Yields) Yields {
	return Yields{
		Food:       y.Food + o.Food,
		Production: y.Production + o.Production,
		Gold:       y.Gold + o.Gold,
		Science:    y.Science + o.Science,
		Culture:    y.Culture + o.Culture,
	}
}

// Sub returns the component-wise difference.
func (y Yields) Sub(o Yields) Yields {
	return Yields{
		Food:       y.Food - o.Food,
		Production: y.Production - o.Production,
		Gold:       y.Gold - o.Gold,
		Science:    y.Science - o.Science,
		Culture:    y.Culture - o.Culture,
	}
}

// Scale multiplies every component by n.
func (y Yields) Scale(n int) Yields {
	return Yields{
		Food:       y.Food * n,
		Production: y.Production * n,
		Gold:       y.Gold * n,
		Science:    y.Science * n,
		Culture:    y.Culture * n,
	}
}

// ClampNonNegative floors every component at zero. Idempotent.
func (y Yields) ClampNonNegative() Yields {
	return Yields{
		Food:       maxInt(y.Food, 0),
		Production: maxInt(y.Production, 0),
		Gold:       maxInt(y.Gold, 0),
		Science:    maxInt(y.Science, 0),
		Culture:    maxInt(y.Culture, 0),
	}
}

// Total is the plain component sum, used by start-position scoring.
func (y Yields) Total() int {
	return y.Food + y.Production + y.Gold + y.Science + y.Culture
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
