package model

import (
	"fmt"
	"strings"
)

// Difficulty is a task tier. Each tier pays a fixed coin reward.
type Difficulty string

const (
	DifficultyQuick  Difficulty = "quick"
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyEpic   Difficulty = "epic"
)

// Difficulties lists every tier from cheapest to most rewarding.
var Difficulties = []Difficulty{
	DifficultyQuick,
	DifficultyEasy,
	DifficultyMedium,
	DifficultyHard,
	DifficultyEpic,
}

var tierCoins = map[Difficulty]int{
	DifficultyQuick:  5,
	DifficultyEasy:   10,
	DifficultyMedium: 25,
	DifficultyHard:   50,
	DifficultyEpic:   100,
}

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	_, ok := tierCoins[d]
	return ok
}

// Coins returns the reward for completing a task of tier d.
// Unknown tiers pay nothing.
func (d Difficulty) Coins() int {
	return tierCoins[d]
}

// ParseDifficulty parses a tier name case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid difficulty %q: must be one of %v", s, Difficulties)
	}
	return d, nil
}
