package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

// MoveType represents the type of CNC toolpath movement.
type MoveType int

const (
	MoveRapid   MoveType = iota // G0: rapid positioning (no cutting)
	MoveFeed                    // G1: linear feed (cutting move in XY plane)
	MovePlunge                  // G1 with Z decreasing: plunging into material
	MoveRetract                 // G0/G1 with Z increasing: retracting from material
	MoveArcCW                   // G2: clockwise arc in the XY plane
	MoveArcCCW                  // G3: counter-clockwise arc in the XY plane
)

// GCodeMove represents a single parsed movement from GCode.
type GCodeMove struct {
	Type     MoveType
	FromX    float64
	FromY    float64
	FromZ    float64
	ToX      float64
	ToY      float64
	ToZ      float64
	FeedRate float64
	// Arc center offset from the start point, set for G2/G3 only
	I float64
	J float64
}

var coordRe = regexp.MustCompile(`([XYZFIJ])(-?\d+\.?\d*)`)

// hasCommand reports whether the line starts with word (e.g. "G1") or its
// zero-padded form ("G01").
func hasCommand(upper, word string) bool {
	padded := word[:1] + "0" + word[1:]
	for _, w := range []string{word, padded} {
		if upper == w || strings.HasPrefix(upper, w+" ") {
			return true
		}
	}
	return false
}

// ParseGCode parses a GCode string into a slice of structured moves.
// It tracks absolute position state and classifies each G0/G1 command
// by its movement characteristics (rapid, feed, plunge, retract). G2/G3
// arcs are kept as single moves with their I/J center offsets.
func ParseGCode(code string) []GCodeMove {
	var moves []GCodeMove

	// Current machine state
	curX, curY, curZ := 0.0, 0.0, 0.0
	curFeed := 0.0

	lines := strings.Split(code, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Strip inline comments (semicolon or parenthetical)
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.Index(line, "("); idx >= 0 {
			if end := strings.Index(line, ")"); end > idx {
				line = line[:idx] + line[end+1:]
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Determine command type
		upper := strings.ToUpper(line)
		isRapid := hasCommand(upper, "G0")
		isFeed := hasCommand(upper, "G1")
		isCW := hasCommand(upper, "G2")
		isCCW := hasCommand(upper, "G3")

		if !isRapid && !isFeed && !isCW && !isCCW {
			continue
		}

		// Parse coordinates from this line
		newX, newY, newZ, newFeed := curX, curY, curZ, curFeed
		var offI, offJ float64
		matches := coordRe.FindAllStringSubmatch(upper, -1)
		for _, m := range matches {
			val, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[1] {
			case "X":
				newX = val
			case "Y":
				newY = val
			case "Z":
				newZ = val
			case "F":
				newFeed = val
			case "I":
				offI = val
			case "J":
				offJ = val
			}
		}

		var moveType MoveType
		switch {
		case isCW:
			moveType = MoveArcCW
		case isCCW:
			moveType = MoveArcCCW
		default:
			moveType = classifyMove(isRapid, curZ, newZ, curX, curY, newX, newY)
		}

		moves = append(moves, GCodeMove{
			Type:     moveType,
			FromX:    curX,
			FromY:    curY,
			FromZ:    curZ,
			ToX:      newX,
			ToY:      newY,
			ToZ:      newZ,
			FeedRate: newFeed,
			I:        offI,
			J:        offJ,
		})

		curX, curY, curZ, curFeed = newX, newY, newZ, newFeed
	}

	return moves
}

// classifyMove determines the MoveType based on movement characteristics.
func classifyMove(isRapid bool, fromZ, toZ, fromX, fromY, toX, toY float64) MoveType {
	zDelta := toZ - fromZ
	hasXY := fromX != toX || fromY != toY

	switch {
	case isRapid:
		if zDelta > 0 {
			return MoveRetract
		}
		return MoveRapid
	case zDelta < -0.001 && !hasXY:
		// Z going down (more negative) without XY movement = plunge
		return MovePlunge
	case zDelta > 0.001 && !hasXY:
		// Z going up without XY movement = retract
		return MoveRetract
	default:
		return MoveFeed
	}
}

// Center returns the arc center of a G2/G3 move.
func (m GCodeMove) Center() (float64, float64) {
	return m.FromX + m.I, m.FromY + m.J
}

// IsCut reports whether the move removes material in the XY plane.
func (m GCodeMove) IsCut() bool {
	return m.Type == MoveFeed || m.Type == MoveArcCW || m.Type == MoveArcCCW
}
