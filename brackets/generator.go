package brackets

import (
	"errors"
	"fmt"

	"github.com/bracketlab/esports-server/models"
)

var (
	ErrInsufficientParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrUnsupportedFormat        = errors.New("unsupported bracket format")
)

// Blueprint is the output of a generator: pure match topology, not yet bound
// to database rows. Match stubs carry deterministic UIDs and precomputed
// winner/loser destinations so that advancement is index arithmetic.
type Blueprint struct {
	Format  models.TournamentFormat
	Rounds  int
	Matches []*models.Match
}

// Generator builds the match topology for one tournament format from an
// ordered list of team IDs (seed order). Generation is deterministic: the
// same input order always yields the same topology.
type Generator interface {
	Format() models.TournamentFormat
	Generate(teamIDs []int) (*Blueprint, error)
}

// ForFormat returns the generator for a tournament format. Swiss is a valid
// stored format but has no pairing engine, so it is rejected here.
func ForFormat(format models.TournamentFormat) (Generator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func winnersUID(round, order int) string {
	return fmt.Sprintf("W-R%dM%d", round, order)
}

func losersUID(round, order int) string {
	return fmt.Sprintf("L-R%dM%d", round, order)
}

// GrandFinalUID names the single grand-final match of a double-elimination
// bracket.
const GrandFinalUID = "GF"

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
