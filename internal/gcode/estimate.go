package gcode

import (
	"math"
	"time"
)

// Estimate summarizes the travel of a parsed program.
type Estimate struct {
	CutLength   float64       // mm at feed rate, including plunges and arcs
	RapidLength float64       // mm of rapids and retracts
	Plunges     int           // number of plunges into the material
	CutTime     time.Duration // time spent at feed rate
}

// arcLength returns the length of a G2/G3 move. A move that ends where it
// starts is a full circle.
func arcLength(m GCodeMove) float64 {
	cx, cy := m.Center()
	r := math.Hypot(m.FromX-cx, m.FromY-cy)
	a0 := math.Atan2(m.FromY-cy, m.FromX-cx)
	a1 := math.Atan2(m.ToY-cy, m.ToX-cx)
	sweep := a1 - a0
	if m.Type == MoveArcCW {
		sweep = -sweep
	}
	for sweep <= 1e-9 {
		sweep += 2 * math.Pi
	}
	return r * sweep
}

// EstimateMoves adds up the length and feed time of moves. Rapid time
// depends on the machine and is not included.
func EstimateMoves(moves []GCodeMove) Estimate {
	var e Estimate
	var minutes float64
	for _, m := range moves {
		var l float64
		switch m.Type {
		case MoveArcCW, MoveArcCCW:
			l = arcLength(m)
		default:
			l = math.Sqrt(math.Pow(m.ToX-m.FromX, 2) + math.Pow(m.ToY-m.FromY, 2) + math.Pow(m.ToZ-m.FromZ, 2))
		}

		switch m.Type {
		case MoveRapid, MoveRetract:
			e.RapidLength += l
			continue
		case MovePlunge:
			e.Plunges++
		}
		e.CutLength += l
		if m.FeedRate > 0 {
			minutes += l / m.FeedRate
		}
	}
	e.CutTime = time.Duration(minutes * float64(time.Minute))
	return e
}
