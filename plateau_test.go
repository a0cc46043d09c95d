package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sketch2fig/entities/judge"
)

func scored(overall float64) *judge.Evaluation {
	return &judge.Evaluation{Scores: judge.Scores{Overall: overall}}
}

func passed(overall float64) *judge.Evaluation {
	e := scored(overall)
	e.Pass = true
	return e
}

func TestShouldStopEmptyHistory(t *testing.T) {
	assert.False(t, shouldStop(nil, 0))
	assert.False(t, shouldStop([]*judge.Evaluation{}, 0))
}

func TestShouldStopOnPass(t *testing.T) {
	assert.True(t, shouldStop([]*judge.Evaluation{passed(8.5)}, 0))
	assert.True(t, shouldStop([]*judge.Evaluation{scored(4), passed(9)}, 0))
}

func TestShouldStopSingleScore(t *testing.T) {
	assert.False(t, shouldStop([]*judge.Evaluation{scored(5)}, 0))
}

func TestShouldStopOnEqualScores(t *testing.T) {
	history := []*judge.Evaluation{scored(5), scored(5)}
	assert.True(t, shouldStop(history, 0))
}

func TestShouldStopOnRegression(t *testing.T) {
	history := []*judge.Evaluation{scored(6), scored(5.5)}
	assert.True(t, shouldStop(history, 0))
}

func TestShouldContinueOnImprovement(t *testing.T) {
	history := []*judge.Evaluation{scored(5), scored(6)}
	assert.False(t, shouldStop(history, 0))
}

func TestShouldStopEpsilonAbsorbsSmallGains(t *testing.T) {
	history := []*judge.Evaluation{scored(5), scored(5.2)}
	assert.False(t, shouldStop(history, 0))
	assert.True(t, shouldStop(history, 0.25))
}

func TestShouldStopSkipsFailedIterations(t *testing.T) {
	// A compile-failed iteration contributes a nil entry; the comparison
	// uses the two most recent scored iterations around it.
	history := []*judge.Evaluation{scored(5), nil, scored(5)}
	assert.True(t, shouldStop(history, 0))

	history = []*judge.Evaluation{scored(5), nil, scored(7)}
	assert.False(t, shouldStop(history, 0))
}

func TestShouldStopTrailingFailureNeverPlateaus(t *testing.T) {
	// Improvement is measured over scored entries only, so scores 5 then 6
	// with a trailing nil still counts as improving.
	history := []*judge.Evaluation{scored(5), scored(6), nil}
	assert.False(t, shouldStop(history, 0))
}

func TestShouldStopOnlyFailures(t *testing.T) {
	assert.False(t, shouldStop([]*judge.Evaluation{nil, nil, nil}, 0))
}
